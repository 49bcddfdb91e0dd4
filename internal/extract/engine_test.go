package extract

import (
	"context"
	"errors"
	"os"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"github.com/joseph-ayodele/contracts-tracker/constants"
	"github.com/joseph-ayodele/contracts-tracker/internal/nlp"
)

type fakeClassifier struct {
	ents nlp.Entities
	err  error
}

func (f fakeClassifier) Classify(context.Context, string) (nlp.Entities, error) {
	return f.ents, f.err
}

func newDefaultEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(DefaultRules(), nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func readFixture(t *testing.T, name string) string {
	t.Helper()
	b, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(b)
}

func extract(t *testing.T, e *Engine, text string) *Record {
	t.Helper()
	rec, err := e.ExtractFields(context.Background(), text)
	if err != nil {
		t.Fatalf("ExtractFields: %v", err)
	}
	return rec
}

func assertFields(t *testing.T, rec *Record, want map[string]string, absent []string) {
	t.Helper()
	for f, w := range want {
		got, ok := rec.Get(f)
		if !ok {
			t.Errorf("%s: missing, want %q", f, w)
			continue
		}
		if got != w {
			t.Errorf("%s = %q, want %q", f, got, w)
		}
	}
	for _, f := range absent {
		if v, ok := rec.Get(f); ok {
			t.Errorf("%s = %q, want absent", f, v)
		}
	}
}

func TestContractNumberFromHeading(t *testing.T) {
	rec := extract(t, newDefaultEngine(t), "ДОГОВОР ПОДРЯДА №03.07/24-К\nг. Самара «03» июля 2024 г.\n")
	assertFields(t, rec, map[string]string{
		constants.FieldContractNumber:    "03.07/24-К",
		constants.FieldContractType:      "Договор подряда",
		constants.FieldContractDate:      "2024-07-03",
		constants.FieldPlaceOfConclusion: "Самара",
	}, nil)
}

func TestAmountAndVAT(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"price sentence", "4.1. Цена Договора составляет 4728 960,00 руб., в т.ч. НДС 20% - 788 160,00 руб."},
		{"total before vat", "Итого: 4728 960,00 руб.\n(сумма прописью), в т.ч. НДС 20% - 788 160,00 руб."},
		{"no-break spaces", "Стоимость работ составляет 4728\u00a0960,00 руб. НДС 20% - 788\u00a0160,00 руб."},
		{"total with vat spelled out", "Итого: 4728 960,00 руб., в том числе НДС 20% - 788 160,00 руб."},
		{"vat spelled out", "Общая сумма 4728 960,00 руб., в том числе НДС 20% - 788 160,00 руб."},
		{"total to pay", "ИТОГО к оплате: 4728 960,00 руб.\nНДС 20% - 788 160,00 руб."},
	}
	e := newDefaultEngine(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := extract(t, e, tt.text)
			assertFields(t, rec, map[string]string{
				constants.FieldVATRate:       "20",
				constants.FieldAmountInclVAT: "4728960.00",
				constants.FieldVATAmount:     "788160.00",
			}, nil)
		})
	}
}

func TestWarrantyInWords(t *testing.T) {
	rec := extract(t, newDefaultEngine(t), "Гарантия действует до истечения шестидесяти месяцев с момента передачи объекта.")
	assertFields(t, rec, map[string]string{constants.FieldWarrantyMonths: "60"}, nil)

	rec = extract(t, newDefaultEngine(t), "гарантия: двадцати четырех месяцев с момента подписания акта")
	assertFields(t, rec, map[string]string{constants.FieldWarrantyMonths: "24"}, nil)
}

func TestMonthsWithoutWarrantyContext(t *testing.T) {
	rec := extract(t, newDefaultEngine(t), "Оплата производится в течение трех месяцев с момента подписания акта.")
	assertFields(t, rec, nil, []string{constants.FieldWarrantyMonths})
}

func TestCapitalizedMonth(t *testing.T) {
	rec := extract(t, newDefaultEngine(t), "ДОГОВОР ПОДРЯДА №7\nг. Самара «03» Июля 2024 г.\n")
	assertFields(t, rec, map[string]string{constants.FieldContractDate: "2024-07-03"}, nil)

	rec = extract(t, newDefaultEngine(t), "ДОГОВОР ПОДРЯДА №7 от 15 ДЕКАБРЯ 2023 г.\n")
	assertFields(t, rec, map[string]string{constants.FieldContractDate: "2023-12-15"}, nil)
}

const fiveAttachments = `Приложения:
Приложение №3 — График производства работ;
Приложение №1 — Протокол согласования расхода материала;
Приложение №2 — Сметный расчёт;
Приложение №5 - Технологическая карта «Устройство систем
фасадных теплоизоляционных композитных».
Приложение №4 - Форма согласия на обработку персональных данных;
`

func TestAttachmentsFollowRuleOrder(t *testing.T) {
	rec := extract(t, newDefaultEngine(t), fiveAttachments)
	want := []Attachment{
		{Number: "1", Title: "Протокол согласования расхода материала", Type: constants.AttachmentProtocol},
		{Number: "2", Title: "Сметный расчёт", Type: constants.AttachmentEstimate},
		{Number: "3", Title: "График производства работ", Type: constants.AttachmentSchedule},
		{Number: "4", Title: "Форма согласия на обработку персональных данных", Type: constants.AttachmentForm},
		{Number: "5", Title: "Технологическая карта «Устройство систем фасадных теплоизоляционных композитных»", Type: constants.AttachmentTechnicalMap},
	}
	if !reflect.DeepEqual(rec.Attachments, want) {
		t.Errorf("attachments =\n%+v\nwant\n%+v", rec.Attachments, want)
	}
}

func TestAttachmentTitleStopsAtHeading(t *testing.T) {
	text := "Приложение №1 — Сметный расчёт\n" +
		"Приложение №2 — График работ\n" +
		"10. АДРЕСА И РЕКВИЗИТЫ СТОРОН\n" +
		"Заказчик: ООО «Ромашка»\n" +
		"ИНН 1234567890"
	rec := extract(t, newDefaultEngine(t), text)
	want := []Attachment{
		{Number: "1", Title: "Сметный расчёт", Type: constants.AttachmentEstimate},
		{Number: "2", Title: "График работ", Type: constants.AttachmentSchedule},
	}
	if !reflect.DeepEqual(rec.Attachments, want) {
		t.Errorf("attachments =\n%+v\nwant\n%+v", rec.Attachments, want)
	}
}

func TestAttachmentTitleFollowsLowercaseWrap(t *testing.T) {
	rec := extract(t, newDefaultEngine(t), "Приложение №1 — Форма согласия на обработку\nперсональных данных\nПодписи сторон")
	want := "Форма согласия на обработку персональных данных"
	if len(rec.Attachments) != 1 || rec.Attachments[0].Title != want {
		t.Errorf("attachments = %+v, want title %q", rec.Attachments, want)
	}
}

func TestAttachmentSlotDoesNotMatchTwoDigitNumber(t *testing.T) {
	rec := extract(t, newDefaultEngine(t), "Приложение №10 — Акт приемки;\n")
	if len(rec.Attachments) != 1 || rec.Attachments[0].Number != "10" || rec.Attachments[0].Type != constants.AttachmentAct {
		t.Errorf("attachments = %+v, want only slot 10 (act)", rec.Attachments)
	}
}

func TestContractPodryadFixture(t *testing.T) {
	rec := extract(t, newDefaultEngine(t), readFixture(t, "contract_podryad.txt"))
	assertFields(t, rec, map[string]string{
		constants.FieldContractNumber:     "03.07/24-К",
		constants.FieldContractDate:       "2024-07-03",
		constants.FieldCustomerName:       "Общество с ограниченной ответственностью «Строительная компания «Лидер»",
		constants.FieldCustomerType:       "юридическое лицо",
		constants.FieldCustomerINN:        "6317153913",
		constants.FieldCustomerDirector:   "Власова Егора Евгеньевича",
		constants.FieldContractorName:     "Общество с ограниченной ответственностью «АТЛАНТ»",
		constants.FieldContractorDirector: "Бикбулатова Марата Наильевича",
		constants.FieldWorkObjectName:     "Среднеэтажный жилой дом со встроенными нежилыми помещениями и подземным паркингом",
		constants.FieldWorkObjectAddress:  "г. Самара, Октябрьский район, просека Третья",
		constants.FieldCadastralNumber:    "63:01:0637003:94",
		constants.FieldLandArea:           "15000",
		constants.FieldConstructionPermit: "63-301000-130-2021",
		constants.FieldPermitDate:         "2021-07-29",
		constants.FieldAmountInclVAT:      "4728960.00",
		constants.FieldVATRate:            "20",
		constants.FieldVATAmount:          "788160.00",
		constants.FieldRetention:          "5",
		constants.FieldWarrantyMonths:     "60",
		constants.FieldPenaltyFirstWeek:   "0.1",
		constants.FieldPenaltyAfterWeek:   "0.2",
		constants.FieldDocumentPenalty:    "50000",
	}, []string{
		constants.FieldContractorINN,
		constants.FieldCustomerBankAccount,
		constants.FieldWorkStartDate,
	})
	if len(rec.Attachments) != 5 {
		t.Fatalf("attachments = %d, want 5", len(rec.Attachments))
	}
	if got, want := rec.Attachments[4].Title, "Технологическая карта Корпорации ТЕХНОНИКОЛЬ «Устройство систем фасадных теплоизоляционных композитных»"; got != want {
		t.Errorf("wrapped title = %q, want %q", got, want)
	}
	wantSummary := "Первые 7 дней: 0.1%; После 7 дней: 0.2%; За документы: 50000 руб."
	if rec.PenaltiesSummary != wantSummary {
		t.Errorf("penalties summary = %q, want %q", rec.PenaltiesSummary, wantSummary)
	}
}

func TestContractStroyFixture(t *testing.T) {
	rec := extract(t, newDefaultEngine(t), readFixture(t, "contract_stroy.txt"))
	assertFields(t, rec, map[string]string{
		constants.FieldContractNumber:        "2024/СТР-001",
		constants.FieldContractType:          "Договор строительного подряда",
		constants.FieldContractDate:          "2024-07-25",
		constants.FieldPlaceOfConclusion:     "Москва",
		constants.FieldCustomerName:          "Общество с ограниченной ответственностью «СтройИнвест»",
		constants.FieldCustomerINN:           "7702123456",
		constants.FieldCustomerOGRN:          "1027700123456",
		constants.FieldContractorName:        "Индивидуальный предприниматель Петров Иван Сергеевич",
		constants.FieldContractorType:        "индивидуальный предприниматель",
		constants.FieldContractorINN:         "770212345678",
		constants.FieldWorkObjectName:        "Многоквартирного жилого дома",
		constants.FieldWorkObjectAddress:     "г. Москва, ул. Строительная, д. 15, кор. 2",
		constants.FieldCadastralNumber:       "77:01:0001234:567",
		constants.FieldLandArea:              "1200",
		constants.FieldBuildingArea:          "2800",
		constants.FieldConstructionPermit:    "77-123-456-2024",
		constants.FieldPermitDate:            "2024-07-15",
		constants.FieldWorkStartDate:         "2024-08-01",
		constants.FieldDeadline:              "2024-12-31",
		constants.FieldAmountInclVAT:         "5500000.00",
		constants.FieldVATRate:               "20",
		constants.FieldVATAmount:             "916666.67",
		constants.FieldWarrantyMonths:        "60",
		constants.FieldPenaltyFirstWeek:      "0.1",
		constants.FieldPenaltyAfterWeek:      "0.2",
		constants.FieldCustomerBankAccount:   "40702810123456789012",
		constants.FieldCustomerBIK:           "044525225",
		constants.FieldCustomerCorrAccount:   "30101810400000000225",
		constants.FieldCustomerBankName:      "ПАО «Сбербанк»",
		constants.FieldContractorBankAccount: "40802810987654321098",
		constants.FieldContractorBIK:         "044525411",
		constants.FieldContractorCorrAccount: "30101810145250000411",
		constants.FieldContractorBankName:    "ВТБ",
	}, []string{
		constants.FieldCustomerDirector,
		constants.FieldContractorDirector,
	})
}

func TestSecondBankBlockMissing(t *testing.T) {
	rec := extract(t, newDefaultEngine(t), "Заказчик: р/с 40702810123456789012 в ПАО «Сбербанк», БИК 044525225\n")
	assertFields(t, rec, map[string]string{
		constants.FieldCustomerBankAccount: "40702810123456789012",
		constants.FieldCustomerBIK:         "044525225",
	}, []string{
		constants.FieldContractorBankAccount,
		constants.FieldContractorBIK,
	})
}

func TestExtractionIsIdempotent(t *testing.T) {
	e, err := NewEngine(DefaultRules(), fakeClassifier{ents: nlp.Entities{nlp.ORG: {"ООО «АТЛАНТ»"}}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	text := readFixture(t, "contract_podryad.txt")
	first := extract(t, e, text)
	second := extract(t, e, text)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("records differ:\n%+v\n%+v", first, second)
	}
}

func TestRecordMatchesSchema(t *testing.T) {
	e := newDefaultEngine(t)
	for _, f := range []string{"contract_podryad.txt", "contract_stroy.txt"} {
		rec := extract(t, e, readFixture(t, f))
		if err := e.Validate(rec); err != nil {
			t.Errorf("%s: %v", f, err)
		}
	}
}

func TestFirstMatchingRuleWins(t *testing.T) {
	rules := []Rule{
		{Name: "late", Field: "code", Pattern: regexp.MustCompile(`B=(\w+)`), Priority: 2},
		{Name: "early", Field: "code", Pattern: regexp.MustCompile(`A=(\w+)`), Priority: 1},
		{Name: "never", Field: "code", Pattern: regexp.MustCompile(`A=(\w+)`), Priority: 3,
			Transform: func([]string) (string, error) { panic("must not run") }},
	}
	e, err := NewEngine(rules, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := extract(t, e, "B=second A=first")
	if got := rec.Fields["code"]; got != "first" {
		t.Errorf("code = %q, want first", got)
	}
	if len(rec.Diagnostics) != 0 {
		t.Errorf("diagnostics = %+v", rec.Diagnostics)
	}

	rec = extract(t, e, "B=second")
	if got := rec.Fields["code"]; got != "second" {
		t.Errorf("fallback code = %q, want second", got)
	}
}

func TestFailingRuleIsIsolated(t *testing.T) {
	rules := []Rule{
		{Name: "boom", Field: "a", Pattern: regexp.MustCompile(`a=(\d+)`),
			Transform: func([]string) (string, error) { panic("index out of range") }},
		{Name: "bad", Field: "b", Pattern: regexp.MustCompile(`b=(\d+)`),
			Transform: func([]string) (string, error) { return "", errors.New("cannot parse") }},
		{Name: "ok", Field: "c", Pattern: regexp.MustCompile(`c=(\d+)`)},
	}
	e, err := NewEngine(rules, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := extract(t, e, "a=1 b=2 c=3")
	if rec.Fields["c"] != "3" {
		t.Errorf("c = %q, want 3", rec.Fields["c"])
	}
	if len(rec.Diagnostics) != 2 {
		t.Fatalf("diagnostics = %+v, want 2", rec.Diagnostics)
	}
	if rec.Diagnostics[0].Rule != "boom" || !strings.Contains(rec.Diagnostics[0].Message, "panic") {
		t.Errorf("first diagnostic = %+v", rec.Diagnostics[0])
	}
	if rec.Diagnostics[1].Rule != "bad" || rec.Diagnostics[1].Field != "b" {
		t.Errorf("second diagnostic = %+v", rec.Diagnostics[1])
	}
}

func TestRejectedValueFallsThrough(t *testing.T) {
	rules := field(constants.FieldCustomerINN,
		Rule{Pattern: regexp.MustCompile(`ИНН (\d+)`)},
		Rule{Pattern: regexp.MustCompile(`ИНН заказчика (\d+)`)},
	)
	e, err := NewEngine(rules, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := extract(t, e, "ИНН 123, ИНН заказчика 6317153913")
	assertFields(t, rec, map[string]string{constants.FieldCustomerINN: "6317153913"}, nil)
	if len(rec.Diagnostics) != 1 || !strings.Contains(rec.Diagnostics[0].Message, `"123"`) {
		t.Errorf("diagnostics = %+v", rec.Diagnostics)
	}
}

func TestEntityPass(t *testing.T) {
	text := "ДОГОВОР ПОДРЯДА №1"

	rec := extract(t, newDefaultEngine(t), text)
	if !rec.EntitiesUnavailable || rec.EntityError == "" {
		t.Errorf("nil classifier: unavailable=%v error=%q", rec.EntitiesUnavailable, rec.EntityError)
	}

	e, _ := NewEngine(DefaultRules(), fakeClassifier{err: errors.New("model not loaded")}, nil)
	rec = extract(t, e, text)
	if !rec.EntitiesUnavailable || !strings.Contains(rec.EntityError, "model not loaded") {
		t.Errorf("failing classifier: unavailable=%v error=%q", rec.EntitiesUnavailable, rec.EntityError)
	}
	if rec.Fields[constants.FieldContractNumber] != "1" {
		t.Errorf("rules must still run, got %+v", rec.Fields)
	}

	ents := nlp.Entities{nlp.DATE: {"«03» июля 2024"}}
	e, _ = NewEngine(DefaultRules(), fakeClassifier{ents: ents}, nil)
	rec = extract(t, e, text)
	if rec.EntitiesUnavailable || !reflect.DeepEqual(rec.Entities, ents) {
		t.Errorf("entities = %+v unavailable=%v", rec.Entities, rec.EntitiesUnavailable)
	}
}

func TestExtractFieldsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newDefaultEngine(t).ExtractFields(ctx, "ДОГОВОР №1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestFieldsListsTableOrder(t *testing.T) {
	fields := newDefaultEngine(t).Fields()
	if fields[0] != constants.FieldContractNumber {
		t.Errorf("first field = %s", fields[0])
	}
	if fields[len(fields)-1] != constants.FieldAttachments {
		t.Errorf("last field = %s", fields[len(fields)-1])
	}
}
