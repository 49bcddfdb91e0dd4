package extract

import "strings"

// russianNumerals lists the case forms of the cardinals that show up in
// contract terms ("шестидесяти месяцев", "двадцати четырех месяцев").
var russianNumerals = map[string]int{}

func init() {
	forms := map[int][]string{
		1:   {"один", "одного", "одному", "одним", "одном", "одна", "одной"},
		2:   {"два", "две", "двух", "двум", "двумя"},
		3:   {"три", "трех", "трёх", "трем", "трём", "тремя"},
		4:   {"четыре", "четырех", "четырёх", "четырем", "четырём", "четырьмя"},
		40:  {"сорок", "сорока"},
		90:  {"девяносто", "девяноста"},
		100: {"сто", "ста"},
	}
	// numerals declined like "пять": nominative, genitive/dative/prepositional, instrumental
	soft := map[int]string{
		5: "пят", 6: "шест", 7: "сем", 9: "девят", 10: "десят",
		11: "одиннадцат", 12: "двенадцат", 13: "тринадцат", 14: "четырнадцат",
		15: "пятнадцат", 16: "шестнадцат", 17: "семнадцат", 18: "восемнадцат",
		19: "девятнадцат", 20: "двадцат", 30: "тридцат",
	}
	for n, stem := range soft {
		forms[n] = append(forms[n], stem+"ь", stem+"и", stem+"ью")
	}
	forms[8] = []string{"восемь", "восьми", "восемью", "восьмью"}
	// 50..80: "пятьдесят", "пятидесяти", "пятьюдесятью"
	for n, parts := range map[int][3]string{
		50: {"пятьдесят", "пятидесяти", "пятьюдесятью"},
		60: {"шестьдесят", "шестидесяти", "шестьюдесятью"},
		70: {"семьдесят", "семидесяти", "семьюдесятью"},
		80: {"восемьдесят", "восьмидесяти", "восемьюдесятью"},
	} {
		forms[n] = parts[:]
	}
	for n, words := range forms {
		for _, w := range words {
			russianNumerals[w] = n
		}
	}
}

// parseRussianNumber sums the numeral words found in s, so "двадцати
// четырех" is 24. Other words are ignored; ok is false when none matched.
func parseRussianNumber(s string) (int, bool) {
	total, found := 0, false
	for _, w := range strings.Fields(strings.ToLower(s)) {
		if n, ok := russianNumerals[strings.Trim(w, "(),.;:")]; ok {
			total += n
			found = true
		}
	}
	return total, found
}
