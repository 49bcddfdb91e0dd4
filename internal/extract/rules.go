package extract

import (
	"fmt"
	"regexp"

	"github.com/joseph-ayodele/contracts-tracker/constants"
)

// Building blocks shared by several patterns.
const (
	monthName = `((?i:января|февраля|марта|апреля|мая|июня|июля|августа|сентября|октября|ноября|декабря))`
	number    = `(\d[\d \x{00a0}]*(?:[.,]\d+)?)`
	percent   = `(\d+(?:[.,]\d+)?)\s*%`
	rubles    = `\s*(?:руб|₽)`
	legalForm = `(Общество с ограниченной ответственностью|Публичное акционерное общество|Закрытое акционерное общество|Акционерное общество|Индивидуальный предприниматель)`
	fullName  = `([А-ЯЁ][а-яё]+\s+[А-ЯЁ][а-яё]+\s+[А-ЯЁ][а-яё]+(?:вича|вны|ича|ичны|вич|вна))`
	docNumber = `([0-9A-Za-zА-Яа-яЁё][0-9A-Za-zА-Яа-яЁё./\-]*)`
	permitRef = `разрешени[а-яё]*\s+на\s+строительство\s*№`
)

// partyBlock matches "<legal form> <name> (<short name>), ИНН ..., именуемое в
// дальнейшем «<role>»". Group 1 is the legal form, group 2 the name.
func partyBlock(role string) string {
	return legalForm + `\s+([^\n(]*?)(?:\s*\([^)]*\))?[\s,]*(?:ИНН\s*\d+[\s,]*)?(?:ОГРН(?:ИП)?\s*\d+[\s,]*)?` +
		`именуем[а-яё]*\s+в\s+дальнейшем\s+«` + role + `»`
}

// idBefore matches an identifier that precedes the party's role declaration
// without crossing another quoted name.
func idBefore(label, digits, role string) string {
	return label + `\s*(` + digits + `)[^«]{0,120}?именуем[а-яё]*\s+в\s+дальнейшем\s+«` + role + `»`
}

func partyName(m []string) (string, error) {
	return textOf(1)([]string{"", group(m, 1) + " " + group(m, 2)})
}

// field declares the rules of one field; priority follows declaration order.
func field(name string, rules ...Rule) []Rule {
	for i := range rules {
		rules[i].Field = name
		if rules[i].Priority == 0 {
			rules[i].Priority = i + 1
		}
		if rules[i].Name == "" {
			rules[i].Name = fmt.Sprintf("%s#%d", name, i+1)
		}
	}
	return rules
}

func re(p string) *regexp.Regexp { return regexp.MustCompile(p) }

const (
	// maxAttachmentSlots bounds the "Приложение №N" rules.
	maxAttachmentSlots = 10
	// maxTitleLines bounds how many wrapped lines one attachment title spans.
	maxTitleLines = 4
)

func attachmentRules() []Rule {
	rules := make([]Rule, 0, maxAttachmentSlots)
	for n := 1; n <= maxAttachmentSlots; n++ {
		rules = append(rules, Rule{
			Name:      fmt.Sprintf("attachment#%d", n),
			Pattern:   re(fmt.Sprintf(`Приложение\s*№\s*%d\s*[—–-]\s*([^\n]*(?:\n[^\n]*){0,%d})`, n, maxTitleLines-1)),
			Transform: attachmentTitle(1),
			Slot:      n,
		})
	}
	return field(constants.FieldAttachments, rules...)
}

// DefaultRules is the rule table for Russian construction contracts.
func DefaultRules() []Rule {
	var t []Rule
	add := func(rs []Rule) { t = append(t, rs...) }

	add(field(constants.FieldContractNumber,
		Rule{Pattern: re(`ДОГОВОР[А-ЯЁ\s]*?№\s*` + docNumber)},
		Rule{Pattern: re(`(?i)договор[^№\n]{0,60}№\s*` + docNumber)},
		Rule{Pattern: re(`№\s*(\d[0-9A-Za-zА-Яа-яЁё./\-]*)`)},
	))
	add(field(constants.FieldContractType,
		Rule{Pattern: re(`(ДОГОВОР(?:[ \t]+[А-ЯЁ]+)*)\s*№`), Transform: sentenceCase(1)},
	))
	add(field(constants.FieldContractDate,
		Rule{Pattern: re(`«\s*(\d{1,2})\s*»\s*` + monthName + `\s+(\d{4})`), Transform: dateWords(1, 2, 3, 0)},
		Rule{Pattern: re(`(?:от|г\.)\s+(\d{1,2})\s+` + monthName + `\s+(\d{4})`), Transform: dateWords(1, 2, 3, 0)},
		Rule{Pattern: re(`от\s+(\d{1,2})\.(\d{1,2})\.(\d{4})`), Transform: dateNumeric(1, 2, 3)},
	))
	add(field(constants.FieldPlaceOfConclusion,
		Rule{Pattern: re(`(?m)^\s*г\.\s*([А-ЯЁ][а-яё\-]+)`)},
	))

	// parties
	add(field(constants.FieldCustomerName,
		Rule{Pattern: re(partyBlock("Заказчик")), Transform: partyName},
		Rule{Pattern: re(`Заказчик:\s*([^\n,]+)`)},
	))
	add(field(constants.FieldCustomerType,
		Rule{Pattern: re(partyBlock("Заказчик")), Transform: partyType(1)},
	))
	add(field(constants.FieldCustomerINN,
		Rule{Pattern: re(idBefore("ИНН", `\d{12}|\d{10}`, "Заказчик"))},
	))
	add(field(constants.FieldCustomerOGRN,
		Rule{Pattern: re(idBefore("ОГРН(?:ИП)?", `\d{15}|\d{13}`, "Заказчик"))},
	))
	add(field(constants.FieldCustomerDirector,
		Rule{Pattern: re(`(?s)«Заказчик».{0,250}?` + fullName + `,?\s+действующ`)},
	))
	add(field(constants.FieldContractorName,
		Rule{Pattern: re(`«Заказчик»(?s:.*?)` + partyBlock("Подрядчик")), Transform: partyName},
		Rule{Pattern: re(`Подрядчик:\s*([^\n,]+)`)},
	))
	add(field(constants.FieldContractorType,
		Rule{Pattern: re(`«Заказчик»(?s:.*?)` + partyBlock("Подрядчик")), Transform: partyType(1)},
	))
	add(field(constants.FieldContractorINN,
		Rule{Pattern: re(idBefore("ИНН", `\d{12}|\d{10}`, "Подрядчик"))},
	))
	add(field(constants.FieldContractorOGRN,
		Rule{Pattern: re(idBefore("ОГРН(?:ИП)?", `\d{15}|\d{13}`, "Подрядчик"))},
	))
	add(field(constants.FieldContractorDirector,
		Rule{Pattern: re(`(?s)«Подрядчик».{0,250}?` + fullName + `,?\s+действующ`)},
	))

	// banking details: first block is the customer's, second the contractor's
	account := re(`(?:р/с|р/сч|расч[её]тный\s+сч[её]т)[\s:№]*(\d{20})`)
	bik := re(`БИК[\s:№]*(\d{9})`)
	corr := re(`(?:к/с|к/сч|корр?еспондентский\s+сч[её]т)[\s:№]*(\d{20})`)
	bank := re(`(?:р/с|р/сч)\s*\d{20}\s+в\s+([^,\n]+)`)
	add(field(constants.FieldCustomerBankAccount, Rule{Pattern: account, Occurrence: 1}))
	add(field(constants.FieldContractorBankAccount, Rule{Pattern: account, Occurrence: 2}))
	add(field(constants.FieldCustomerBIK, Rule{Pattern: bik, Occurrence: 1}))
	add(field(constants.FieldContractorBIK, Rule{Pattern: bik, Occurrence: 2}))
	add(field(constants.FieldCustomerCorrAccount, Rule{Pattern: corr, Occurrence: 1}))
	add(field(constants.FieldContractorCorrAccount, Rule{Pattern: corr, Occurrence: 2}))
	add(field(constants.FieldCustomerBankName, Rule{Pattern: bank, Occurrence: 1}))
	add(field(constants.FieldContractorBankName, Rule{Pattern: bank, Occurrence: 2}))

	// work object
	add(field(constants.FieldWorkObjectName,
		Rule{Pattern: re(`объекте\s+строительства:\s*«([^,»]+)`)},
		Rule{Pattern: re(`строительство\s+([А-ЯЁ][а-яё]+(?:\s+[а-яё]+){0,8}?)\s+расположенн`)},
		Rule{Pattern: re(`(?i)объект(?:ом)?\s+строительства\s*[:—-]\s*([^\n,;]+)`)},
	))
	add(field(constants.FieldWorkObjectAddress,
		Rule{Pattern: re(`расположен[а-яё]*\s+по\s+адресу:\s*([^»]{5,300}?)(?:»|\s+кадастров|\n\s*\n)`)},
		Rule{Pattern: re(`(?i)адрес\s+объекта:\s*([^\n]+)`)},
	))
	add(field(constants.FieldCadastralNumber,
		Rule{Pattern: re(`кадастров[а-яё]*\s+номер[а-яё]*\s*(\d{2}:\d{2}:\d{6,7}:\d+)`)},
		Rule{Pattern: re(`(\d{2}:\d{2}:\d{6,7}:\d+)`)},
	))
	add(field(constants.FieldLandArea,
		Rule{Pattern: re(`[Пп]лощадь\s+земельного\s+участка\s*(?:составляет\s*)?` + number + `\s*кв\.?\s*м`), Transform: amount(1)},
		Rule{Pattern: re(`(?s)кадастров.{0,80}?площадью\s+` + number + `\s*кв\.?\s*м`), Transform: amount(1)},
	))
	add(field(constants.FieldBuildingArea,
		Rule{Pattern: re(`[Оо]бщая\s+площадь\s+(?:здания|объекта)\s*(?:составляет\s*)?` + number + `\s*кв\.?\s*м`), Transform: amount(1)},
	))
	add(field(constants.FieldConstructionPermit,
		Rule{Pattern: re(permitRef + `\s*([0-9A-Za-zА-Яа-яЁё][0-9A-Za-zА-Яа-яЁё\-\s]*?)\s+от\s`), Transform: noSpaces(1)},
	))
	add(field(constants.FieldPermitDate,
		Rule{Pattern: re(`(?s)` + permitRef + `.{0,60}?от\s+(\d{1,2})\.(\d{1,2})\.(\d{4})`), Transform: dateNumeric(1, 2, 3)},
		Rule{Pattern: re(`(?s)` + permitRef + `.{0,60}?от\s+(\d{1,2})\s+` + monthName + `\s+(\d{4})`), Transform: dateWords(1, 2, 3, 0)},
	))
	add(field(constants.FieldProjectCode,
		Rule{Pattern: re(`(?i)шифр(?:ом)?\s*[:№]?\s*«?` + docNumber)},
	))

	// timing: "с 01 августа по 31 декабря 2024 года"
	period := re(`(?:^|\s)с\s+(\d{1,2})\s+` + monthName + `(?:\s+(\d{4}))?\s*(?:г\.?|года)?\s+по\s+(\d{1,2})\s+` + monthName + `\s+(\d{4})`)
	periodNumeric := re(`(?:^|\s)с\s+(\d{2})\.(\d{2})\.(\d{4})\s*(?:г\.?)?\s+по\s+(\d{2})\.(\d{2})\.(\d{4})`)
	add(field(constants.FieldWorkStartDate,
		Rule{Pattern: period, Transform: dateWords(1, 2, 3, 6)},
		Rule{Pattern: periodNumeric, Transform: dateNumeric(1, 2, 3)},
		Rule{Pattern: re(`(?i)начал[оа]\s+(?:выполнения\s+)?работ[^\n\d]{0,20}(\d{2})\.(\d{2})\.(\d{4})`), Transform: dateNumeric(1, 2, 3)},
	))
	add(field(constants.FieldDeadline,
		Rule{Pattern: period, Transform: dateWords(4, 5, 6, 0)},
		Rule{Pattern: periodNumeric, Transform: dateNumeric(4, 5, 6)},
		Rule{Pattern: re(`(?i)(?:окончани[ея]|завершени[ея])\s+работ[^\n\d]{0,30}(\d{2})\.(\d{2})\.(\d{4})`), Transform: dateNumeric(1, 2, 3)},
		Rule{Pattern: re(`(?i)срок[а-яё\s]{0,40}?(?:до|не позднее)\s+(\d{2})\.(\d{2})\.(\d{4})`), Transform: dateNumeric(1, 2, 3)},
	))

	// money
	add(field(constants.FieldAmountInclVAT,
		Rule{Pattern: re(`(?:[Цц]ена|[Сс]тоимость)[^\n]{0,120}?составляет\s+` + number + rubles), Transform: amount(1)},
		Rule{Pattern: re(`(?i)итого(?:\s+(?:с\s+НДС|к\s+оплате))?\s*:?\s*` + number + rubles), Transform: amount(1)},
		Rule{Pattern: re(`(?s)(\d[\d \x{00a0}]*[.,]\d{2})\s*руб.{0,200}?в\s*(?:т\.?\s*ч\.?|том\s+числе)\s*НДС`), Transform: amount(1)},
		Rule{Pattern: re(`составляет\s+` + number + rubles), Transform: amount(1)},
	))
	add(field(constants.FieldVATRate,
		Rule{Pattern: re(`НДС\s*(?:по\s+ставке\s*)?\(?` + percent), Transform: amount(1)},
	))
	add(field(constants.FieldVATAmount,
		Rule{Pattern: re(`НДС\s*\d{1,2}\s*%\s*[-–—:]?\s*` + number + rubles), Transform: amount(1)},
		Rule{Pattern: re(`НДС[^\n%]{0,40}?(\d[\d \x{00a0}]*[.,]\d{2})` + rubles), Transform: amount(1)},
	))
	add(field(constants.FieldRetention,
		Rule{Pattern: re(`удерживает\s+` + percent), Transform: amount(1)},
		Rule{Pattern: re(`(?i)гарантийн[а-яё]*\s+удержани[а-яё]*[^\n%]{0,40}?` + percent), Transform: amount(1)},
	))
	add(field(constants.FieldPaymentTerms,
		Rule{Pattern: re(`(?s)оплат[а-яё]*.{0,200}?в\s+течение\s+(\d{1,3})\s*(?:\([^)]*\)\s*)?(?:рабочих|календарных|банковских)?\s*дн`)},
	))
	add(field(constants.FieldWarrantyMonths,
		Rule{Pattern: re(`(?i)гаранти[а-яё]*\s+срок[а-яё]*\s*(?:составляет\s*)?(\d{1,3})\s*(?:\([^)]*\)\s*)?месяц`), Transform: months(1)},
		Rule{Pattern: re(`(?is)срок[а-яё]*\s+гаранти.{0,250}?(\d{1,3})\s*(?:\([^)]*\)\s*)?месяц`), Transform: months(1)},
		Rule{Pattern: re(`(?is)гаранти.{0,200}?([а-яё]+(?:\s+[а-яё]+)?)\s+месяц[а-яё]*\s+с\s+момента`), Transform: months(1)},
	))

	// penalties
	add(field(constants.FieldPenaltyFirstWeek,
		Rule{Pattern: re(percent + `[^\n;]{0,120}?в\s+течение\s+первых\s+7`), Transform: amount(1)},
		Rule{Pattern: re(`первые\s+7\s*(?:\([^)]*\)\s*)?дней:?\s*` + percent), Transform: amount(1)},
	))
	add(field(constants.FieldPenaltyAfterWeek,
		Rule{Pattern: re(percent + `[^\n;]{0,120}?начиная\s+с\s+8`), Transform: amount(1)},
		Rule{Pattern: re(`начиная\s+с\s+8[^\n:]{0,20}:?\s*` + percent), Transform: amount(1)},
	))
	add(field(constants.FieldLatePayment,
		Rule{Pattern: re(`(?is)(?:просрочк[а-яё]*|несвоевременн[а-яё]*)\s+оплат[а-яё]*.{0,150}?` + percent), Transform: amount(1)},
	))
	add(field(constants.FieldDocumentPenalty,
		Rule{Pattern: re(`(?s)документ[а-яё]*.{0,120}?в\s+размере\s+` + number + rubles), Transform: amount(1)},
	))
	add(field(constants.FieldSitePenalty,
		Rule{Pattern: re(`(?s)(?:строительной\s+площадк|стройплощадк)[а-яё]*.{0,160}?(?:штраф[а-яё]*|неустойк[а-яё]*)\s+в\s+размере\s+` + number + rubles), Transform: amount(1)},
	))

	add(attachmentRules())
	return t
}
