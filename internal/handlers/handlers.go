package handlers

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"image"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/deepbark-api/internal/breeds"
	apierr "github.com/Brownie44l1/deepbark-api/internal/errors"
	"github.com/Brownie44l1/deepbark-api/internal/logging"
	"github.com/Brownie44l1/deepbark-api/internal/model"
	"github.com/Brownie44l1/deepbark-api/internal/storage"
)

const (
	imageField = "image"
	topK       = 2
	// formOverhead bounds the non-file parts of a multipart body.
	formOverhead = 1 << 20
)

//go:embed static/index.html
var indexHTML []byte

// Classifier scores a decoded image.
type Classifier interface {
	Classify(ctx context.Context, img image.Image) (*model.Prediction, error)
}

type Options struct {
	AllowedExtensions []string
	MaxUploadBytes    int64
	// MaxImagePixels bounds decoded width*height; zero uses the model default.
	MaxImagePixels int64
	// Verbose echoes inference errors to clients.
	Verbose bool
}

type Handler struct {
	classifier Classifier
	store      storage.Store
	allowed    map[string]bool
	maxUpload  int64
	maxPixels  int64
	verbose    bool
}

type upload struct {
	Filename string
	Data     []byte
	Path     string
}

func NewHandler(classifier Classifier, store storage.Store, opts Options) *Handler {
	allowed := make(map[string]bool, len(opts.AllowedExtensions))
	for _, ext := range opts.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	maxPixels := opts.MaxImagePixels
	if maxPixels <= 0 {
		maxPixels = model.DefaultMaxImagePixels
	}
	return &Handler{
		classifier: classifier,
		store:      store,
		allowed:    allowed,
		maxUpload:  opts.MaxUploadBytes,
		maxPixels:  maxPixels,
		verbose:    opts.Verbose,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (h *Handler) Breeds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, breeds.All())
}

func (h *Handler) SearchBreeds(w http.ResponseWriter, r *http.Request) {
	query, ok := r.URL.Query()["query"]
	if !ok {
		ResponseError(w, r, apierr.NewInvalidInputError("query is required"))
		return
	}
	writeJSON(w, http.StatusOK, breeds.Search(query[0]))
}

// Classify returns the two most confident breeds for an uploaded image.
func (h *Handler) Classify(w http.ResponseWriter, r *http.Request) {
	up, prediction, err := h.handleUpload(w, r)
	if err != nil {
		ResponseError(w, r, err)
		return
	}

	top := prediction.Top(topK)
	resp := model.ClassifyResponse{
		Predictions: make([]model.ClassConfidence, len(top)),
		ImagePath:   up.Path,
	}
	for i, s := range top {
		resp.Predictions[i] = model.ClassConfidence{Class: s.Class, Confidence: s.Confidence()}
	}

	logging.FromContext(r.Context()).WithField("top", top[0].Class).Info("Image classified")
	writeJSON(w, http.StatusOK, resp)
}

// Predict returns every class probability and the labels above threshold.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	up, prediction, err := h.handleUpload(w, r)
	if err != nil {
		ResponseError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.PredictResponse{
		PredictedLabels:    prediction.Labels,
		ClassProbabilities: prediction.Percentages(),
		ImagePath:          up.Path,
	})
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) (*upload, *model.Prediction, error) {
	log := logging.FromContext(r.Context())

	up, err := h.readUpload(w, r)
	if err != nil {
		return nil, nil, err
	}
	log.WithFields(logrus.Fields{"filename": up.Filename, "size": len(up.Data)}).Info("Received file")

	if !h.allowedFile(up.Filename) {
		return nil, nil, apierr.NewInvalidFileTypeError()
	}

	up.Path, err = h.store.Save(r.Context(), up.Filename, up.Data, http.DetectContentType(up.Data))
	if err != nil {
		if errors.Is(err, storage.ErrInvalidName) {
			return nil, nil, apierr.NewInvalidInputError("Invalid file name")
		}
		return nil, nil, apierr.NewInternalError(err)
	}
	log.WithField("path", up.Path).Debug("Image saved")

	img, format, err := model.DecodeImage(bytes.NewReader(up.Data), h.maxPixels)
	if errors.Is(err, model.ErrImageTooLarge) {
		return nil, nil, apierr.NewImageTooLargeError(h.maxPixels)
	}
	if err != nil {
		return nil, nil, apierr.NewInferenceError(err, h.verbose)
	}
	log.WithFields(logrus.Fields{
		"format": format,
		"width":  img.Bounds().Dx(),
		"height": img.Bounds().Dy(),
	}).Debug("Image decoded")

	prediction, err := h.classifier.Classify(r.Context(), img)
	if err != nil {
		return nil, nil, apierr.NewInferenceError(err, h.verbose)
	}
	return up, prediction, nil
}

// readUpload streams the multipart body until it finds the image part.
// A part without a filename parameter is an ordinary form value and is
// skipped; a part with an empty filename means no file was selected.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+formOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, apierr.NewNoImageError()
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, apierr.NewNoImageError()
		}
		if err != nil {
			if isTooLarge(err) {
				return nil, apierr.NewFileTooLargeError(h.maxUpload)
			}
			return nil, apierr.NewInvalidInputError("Malformed multipart body")
		}

		if part.FormName() != imageField {
			part.Close()
			continue
		}
		_, params, _ := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
		if _, hasFile := params["filename"]; !hasFile {
			part.Close()
			continue
		}

		filename := part.FileName()
		if filename == "" {
			part.Close()
			return nil, apierr.NewNoSelectedFileError()
		}

		data, err := io.ReadAll(io.LimitReader(part, h.maxUpload+1))
		part.Close()
		if err != nil {
			if isTooLarge(err) {
				return nil, apierr.NewFileTooLargeError(h.maxUpload)
			}
			return nil, apierr.NewInvalidInputError("Failed to read file")
		}
		if int64(len(data)) > h.maxUpload {
			return nil, apierr.NewFileTooLargeError(h.maxUpload)
		}
		return &upload{Filename: filename, Data: data}, nil
	}
}

func (h *Handler) allowedFile(filename string) bool {
	ext := filepath.Ext(filename)
	if ext == "" {
		return false
	}
	return h.allowed[strings.ToLower(ext[1:])]
}

func isTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logrus.WithError(err).Error("Unable to encode JSON response")
		status = http.StatusInternalServerError
		buf.Reset()
		json.NewEncoder(&buf).Encode(apierr.NewInternalError(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		logrus.WithError(err).Warn("Unable to write response")
	}
}

// ResponseError writes err as {"error": message}. Errors that are not an
// ErrorInfo become a generic 500.
func ResponseError(w http.ResponseWriter, r *http.Request, err error) {
	info := apierr.ErrorInfo{}
	if !errors.As(err, &info) {
		info = apierr.NewInternalError(err)
	}

	log := logging.FromContext(r.Context()).WithField("status", info.HTTPStatus)
	if info.Cause != nil {
		log = log.WithError(info.Cause)
	}
	if info.HTTPStatus >= http.StatusInternalServerError {
		log.Error(info.Message)
	} else {
		log.Warn(info.Message)
	}

	writeJSON(w, info.HTTPStatus, info)
}
