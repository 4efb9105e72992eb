// Package locale classifies the history page's relative date headings.
//
// The provider renders shelf headings ("Today", "Yesterday") in the UI
// language of the account, so the classifier carries static lookup tables
// for the language variants the provider ships. The tables are built once
// at init and never mutated, so concurrent reads from all pipeline runs are
// safe without locking.
package locale

import "strings"

// Classification is the result of classifying one recency marker.
type Classification struct {
	IsToday          bool
	IsYesterday      bool
	DetectedLanguage string // BCP 47-ish code, "" when unmatched
	OriginalValue    string
}

// dateWords holds the today/yesterday pair for one language.
type dateWords struct {
	lang      string
	today     string
	yesterday string
}

// Table order matters only for collisions (e.g. "Dnes" is both Czech and
// Slovak, "I dag" Danish and Norwegian): the first language listed claims
// the word. Classification is unaffected; only DetectedLanguage is.
var dateTable = []dateWords{
	{"en", "Today", "Yesterday"},
	{"es", "Hoy", "Ayer"},
	{"pt", "Hoje", "Ontem"},
	{"fr", "Aujourd'hui", "Hier"},
	{"de", "Heute", "Gestern"},
	{"it", "Oggi", "Ieri"},
	{"nl", "Vandaag", "Gisteren"},
	{"sv", "Idag", "Igår"},
	{"da", "I dag", "I går"},
	{"no", "I dag", "I går"},
	{"fi", "Tänään", "Eilen"},
	{"is", "Í dag", "Í gær"},
	{"pl", "Dzisiaj", "Wczoraj"},
	{"cs", "Dnes", "Včera"},
	{"sk", "Dnes", "Včera"},
	{"hu", "Ma", "Tegnap"},
	{"ro", "Astăzi", "Ieri"},
	{"bg", "Днес", "Вчера"},
	{"ru", "Сегодня", "Вчера"},
	{"uk", "Сьогодні", "Вчора"},
	{"be", "Сёння", "Учора"},
	{"sr", "Данас", "Јуче"},
	{"hr", "Danas", "Jučer"},
	{"bs", "Danas", "Juče"},
	{"sl", "Danes", "Včeraj"},
	{"mk", "Денес", "Вчера"},
	{"sq", "Sot", "Dje"},
	{"el", "Σήμερα", "Χθες"},
	{"tr", "Bugün", "Dün"},
	{"az", "Bu gün", "Dünən"},
	{"kk", "Бүгін", "Кеше"},
	{"ky", "Бүгүн", "Кечээ"},
	{"uz", "Bugun", "Kecha"},
	{"hy", "Այսօր", "Երեկ"},
	{"ka", "დღეს", "გუშინ"},
	{"he", "היום", "אתמול"},
	{"ar", "اليوم", "أمس"},
	{"fa", "امروز", "دیروز"},
	{"ur", "آج", "گزشتہ روز"},
	{"hi", "आज", "कल"},
	{"mr", "आज", "काल"},
	{"bn", "আজ", "গতকাল"},
	{"pa", "ਅੱਜ", "ਕੱਲ੍ਹ"},
	{"gu", "આજે", "ગઈકાલે"},
	{"ta", "இன்று", "நேற்று"},
	{"te", "ఈ రోజు", "నిన్న"},
	{"kn", "ಇಂದು", "ನಿನ್ನೆ"},
	{"ml", "ഇന്ന്", "ഇന്നലെ"},
	{"si", "අද", "ඊයේ"},
	{"ne", "आज", "हिजो"},
	{"th", "วันนี้", "เมื่อวาน"},
	{"lo", "ມື້ນີ້", "ມື້ວານ"},
	{"km", "ថ្ងៃនេះ", "ម្សិលមិញ"},
	{"my", "ယနေ့", "မနေ့က"},
	{"vi", "Hôm nay", "Hôm qua"},
	{"id", "Hari ini", "Kemarin"},
	{"ms", "Hari ini", "Semalam"},
	{"fil", "Ngayon", "Kahapon"},
	{"zh-Hans", "今天", "昨天"},
	{"zh-Hant", "今天", "昨天"},
	{"ja", "今日", "昨日"},
	{"ko", "오늘", "어제"},
	{"et", "Täna", "Eile"},
	{"lv", "Šodien", "Vakar"},
	{"lt", "Šiandien", "Vakar"},
	{"sw", "Leo", "Jana"},
	{"am", "ዛሬ", "ትናንት"},
	{"mn", "Өнөөдөр", "Өчигдөр"},
}

var (
	todayIndex     = map[string]string{}
	yesterdayIndex = map[string]string{}
)

func init() {
	for _, w := range dateTable {
		if _, ok := todayIndex[w.today]; !ok {
			todayIndex[w.today] = w.lang
		}
		if _, ok := yesterdayIndex[w.yesterday]; !ok {
			yesterdayIndex[w.yesterday] = w.lang
		}
	}
}

// Classify matches a recency marker against the lookup tables. Matching is
// exact after trimming. An unmatched marker classifies as neither today nor
// yesterday; that is an expected outcome for unsupported locales and for
// the absolute-date headings the provider uses beyond yesterday.
func Classify(marker string) Classification {
	trimmed := strings.TrimSpace(marker)
	c := Classification{OriginalValue: marker}
	if trimmed == "" {
		return c
	}
	if lang, ok := todayIndex[trimmed]; ok {
		c.IsToday = true
		c.DetectedLanguage = lang
		return c
	}
	if lang, ok := yesterdayIndex[trimmed]; ok {
		c.IsYesterday = true
		c.DetectedLanguage = lang
		return c
	}
	return c
}

// UnmatchedMarkers collects the distinct non-empty markers in a batch that
// match neither table, preserving first-seen order. Operators use the
// output to extend the tables when the provider adds locales.
func UnmatchedMarkers(markers []string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, m := range markers {
		trimmed := strings.TrimSpace(m)
		if trimmed == "" {
			continue
		}
		c := Classify(trimmed)
		if c.IsToday || c.IsYesterday {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}
