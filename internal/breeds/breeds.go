package breeds

import "strings"

// Breed is a classifier label together with its display names.
type Breed struct {
	NameEn string `json:"name_en"`
	NameKo string `json:"name_ko"`
}

// catalog is ordered by model output index.
var catalog = []Breed{
	{"Beagle", "비글"},
	{"Bichon Frise", "비숑 프리제"},
	{"Border Collie", "보더 콜리"},
	{"Cavalier King Charles spaniel", "카발리에 킹 찰스 스패니얼"},
	{"Chihuahua", "치와와"},
	{"ChowChow", "차우차우"},
	{"Cocker Spaniel", "코커 스패니얼"},
	{"Dachshund", "닥스훈트"},
	{"Doberman", "도베르만"},
	{"French Bull Dog", "프렌치 불독"},
	{"German Shepherd", "저먼 셰퍼드"},
	{"Golden Retriever", "골든 리트리버"},
	{"Italian Greyhound", "이탈리안 그레이하운드"},
	{"Jindo Dog", "진돗개"},
	{"Malamute", "알래스칸 말라뮤트"},
	{"Maltese", "말티즈"},
	{"Miniature Schnauzer", "미니어처 슈나우저"},
	{"Papillon", "파피용"},
	{"Pekingese", "페키니즈"},
	{"Pembroke Welsh Corgi", "웰시 코기"},
	{"Pomeranian", "포메라니안"},
	{"Pug", "퍼그"},
	{"Samoyed", "사모예드"},
	{"Shiba Inu", "시바견"},
	{"Shih Tzu", "시츄"},
	{"Siberian Husky", "시베리안 허스키"},
	{"Standard Poodle", "스탠다드 푸들"},
	{"Toy Poodle", "토이 푸들"},
	{"West Highland White Terrier", "웨스트 하이랜드 화이트 테리어"},
	{"Yorkshire Terrier", "요크셔 테리어"},
}

// Count is the number of classes the classifier head emits.
var Count = len(catalog)

// Labels returns the class names in model output order.
func Labels() []string {
	labels := make([]string, len(catalog))
	for i, b := range catalog {
		labels[i] = b.NameEn
	}
	return labels
}

// All returns a copy of the catalog.
func All() []Breed {
	out := make([]Breed, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a breed by its English label.
func Lookup(nameEn string) (Breed, bool) {
	for _, b := range catalog {
		if b.NameEn == nameEn {
			return b, true
		}
	}
	return Breed{}, false
}

// KoreanName falls back to the English label when no translation exists.
func KoreanName(nameEn string) string {
	if b, ok := Lookup(nameEn); ok {
		return b.NameKo
	}
	return nameEn
}

// Search matches query case-insensitively against either name.
func Search(query string) []Breed {
	q := strings.ToLower(strings.TrimSpace(query))
	out := []Breed{}
	for _, b := range catalog {
		if strings.Contains(strings.ToLower(b.NameEn), q) || strings.Contains(b.NameKo, q) {
			out = append(out, b)
		}
	}
	return out
}
