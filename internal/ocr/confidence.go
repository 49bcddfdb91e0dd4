package ocr

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reDate     = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}|\d{1,2}\s+(января|февраля|марта|апреля|мая|июня|июля|августа|сентября|октября|ноября|декабря)\s+\d{4}`)
	reCurr     = regexp.MustCompile(`руб|₽|рубл`)
	reAmount   = regexp.MustCompile(`\d[\d ]*,\d{2}`)
	reContract = regexp.MustCompile(`договор|заказчик|подрядчик|исполнитель`)
)

// naive heuristic confidence based on decoded text characteristics
func heuristicConfidence(txt string) float32 {
	// contract-ish artifacts (dates, currency, amounts, party words) each add a bit
	txtL := strings.ToLower(txt)
	score := float32(0.2) // base
	if reDate.MatchString(txtL) {
		score += 0.2
	}
	if reCurr.MatchString(txtL) {
		score += 0.15
	}
	if reAmount.MatchString(txtL) {
		score += 0.15
	}
	if reContract.MatchString(txtL) {
		score += 0.2
	}
	if utf8.RuneCountInString(txt) > 500 {
		score += 0.1
	} // enough content
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// blendConfidence weights the engine's own word confidence higher when present.
func blendConfidence(engine, heuristic float32) float32 {
	conf := heuristic
	if engine > 0 {
		conf = 0.7*engine + 0.3*heuristic
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}
