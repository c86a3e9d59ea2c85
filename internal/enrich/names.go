package enrich

import (
	"sort"
	"strings"
)

// exerciseNames maps common Korean movement names, written without spaces,
// to the English names tutorials are usually published under.
var exerciseNames = map[string]string{
	"스쿼트":        "squat",
	"바벨스쿼트":      "barbell squat",
	"고블릿스쿼트":     "goblet squat",
	"불가리안스플릿스쿼트": "bulgarian split squat",
	"벤치프레스":      "bench press",
	"인클라인벤치프레스":  "incline bench press",
	"덤벨프레스":      "dumbbell press",
	"데드리프트":      "deadlift",
	"루마니안데드리프트":  "romanian deadlift",
	"푸시업":        "push up",
	"푸쉬업":        "push up",
	"팔굽혀펴기":      "push up",
	"풀업":         "pull up",
	"턱걸이":        "pull up",
	"친업":         "chin up",
	"런지":         "lunge",
	"플랭크":        "plank",
	"사이드플랭크":     "side plank",
	"숄더프레스":      "shoulder press",
	"오버헤드프레스":    "overhead press",
	"밀리터리프레스":    "military press",
	"바벨로우":       "barbell row",
	"덤벨로우":       "dumbbell row",
	"랫풀다운":       "lat pulldown",
	"시티드로우":      "seated cable row",
	"레그프레스":      "leg press",
	"레그컬":        "leg curl",
	"레그익스텐션":     "leg extension",
	"레그레이즈":      "leg raise",
	"사이드레터럴레이즈":  "lateral raise",
	"레터럴레이즈":     "lateral raise",
	"바이셉컬":       "bicep curl",
	"이두컬":        "bicep curl",
	"덤벨컬":        "dumbbell curl",
	"트라이셉익스텐션":   "tricep extension",
	"딥스":         "dips",
	"힙쓰러스트":      "hip thrust",
	"글루트브릿지":     "glute bridge",
	"카프레이즈":      "calf raise",
	"케틀벨스윙":      "kettlebell swing",
	"체스트플라이":     "chest fly",
	"크런치":        "crunch",
	"싯업":         "sit up",
	"윗몸일으키기":     "sit up",
	"버피":         "burpee",
	"마운틴클라이머":    "mountain climber",
	"점핑잭":        "jumping jack",
	"줄넘기":        "jump rope",
	"러닝":         "running",
	"달리기":        "running",
	"걷기":         "walking",
	"사이클":        "cycling",
	"수영":         "swimming",
	"스트레칭":       "stretching",
	"요가":         "yoga",
}

// keysByLength lists table keys longest first so "바벨스쿼트" wins over "스쿼트".
var keysByLength = func() []string {
	keys := make([]string, 0, len(exerciseNames))
	for k := range exerciseNames {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// EnglishName returns the English name of a known movement. Spacing is
// ignored and a known movement embedded in a longer name also matches.
func EnglishName(name string) (string, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(name), ""))
	if key == "" {
		return "", false
	}
	if en, ok := exerciseNames[key]; ok {
		return en, true
	}
	for _, k := range keysByLength {
		if strings.Contains(key, k) {
			return exerciseNames[k], true
		}
	}
	return "", false
}
