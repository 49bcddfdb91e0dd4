package export

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/contracts-tracker/constants"
	"github.com/joseph-ayodele/contracts-tracker/internal/nlp"
	"github.com/joseph-ayodele/contracts-tracker/internal/pipeline"
)

const (
	sheetContract    = "Contract"
	sheetAttachments = "Attachments"
	sheetEntities    = "Entities"
)

// fieldLabels fixes the row order of the Contract sheet.
var fieldLabels = []struct{ field, label string }{
	{constants.FieldContractNumber, "Номер договора"},
	{constants.FieldContractType, "Вид договора"},
	{constants.FieldContractDate, "Дата договора"},
	{constants.FieldPlaceOfConclusion, "Место заключения"},
	{constants.FieldCustomerName, "Заказчик"},
	{constants.FieldCustomerType, "Тип заказчика"},
	{constants.FieldCustomerINN, "ИНН заказчика"},
	{constants.FieldCustomerOGRN, "ОГРН заказчика"},
	{constants.FieldCustomerDirector, "Представитель заказчика"},
	{constants.FieldContractorName, "Подрядчик"},
	{constants.FieldContractorType, "Тип подрядчика"},
	{constants.FieldContractorINN, "ИНН подрядчика"},
	{constants.FieldContractorOGRN, "ОГРН подрядчика"},
	{constants.FieldContractorDirector, "Представитель подрядчика"},
	{constants.FieldCustomerBankAccount, "Р/с заказчика"},
	{constants.FieldCustomerBIK, "БИК заказчика"},
	{constants.FieldCustomerCorrAccount, "К/с заказчика"},
	{constants.FieldCustomerBankName, "Банк заказчика"},
	{constants.FieldContractorBankAccount, "Р/с подрядчика"},
	{constants.FieldContractorBIK, "БИК подрядчика"},
	{constants.FieldContractorCorrAccount, "К/с подрядчика"},
	{constants.FieldContractorBankName, "Банк подрядчика"},
	{constants.FieldWorkObjectName, "Объект"},
	{constants.FieldWorkObjectAddress, "Адрес объекта"},
	{constants.FieldCadastralNumber, "Кадастровый номер"},
	{constants.FieldLandArea, "Площадь участка, кв. м"},
	{constants.FieldBuildingArea, "Площадь здания, кв. м"},
	{constants.FieldConstructionPermit, "Разрешение на строительство"},
	{constants.FieldPermitDate, "Дата разрешения"},
	{constants.FieldProjectCode, "Шифр проекта"},
	{constants.FieldWorkStartDate, "Начало работ"},
	{constants.FieldDeadline, "Окончание работ"},
	{constants.FieldAmountInclVAT, "Цена с НДС, руб."},
	{constants.FieldVATRate, "Ставка НДС, %"},
	{constants.FieldVATAmount, "НДС, руб."},
	{constants.FieldRetention, "Гарантийное удержание, %"},
	{constants.FieldPaymentTerms, "Срок оплаты, дней"},
	{constants.FieldWarrantyMonths, "Гарантийный срок, мес."},
	{constants.FieldPenaltyFirstWeek, "Пеня первые 7 дней, %"},
	{constants.FieldPenaltyAfterWeek, "Пеня после 7 дней, %"},
	{constants.FieldLatePayment, "Пеня за просрочку оплаты, %"},
	{constants.FieldDocumentPenalty, "Штраф за документы, руб."},
	{constants.FieldSitePenalty, "Штраф за стройплощадку, руб."},
}

// Service produces XLSX bytes for completed jobs.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ContractXLSX renders one job result as a workbook with the Contract,
// Attachments and Entities sheets. Absent fields are left out.
func (s *Service) ContractXLSX(jobID string, res *pipeline.Result) ([]byte, error) {
	start := time.Now()
	rec := res.ContractData

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetContract); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetAttachments, sheetEntities} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	// Contract
	rows := [][]any{
		{"Поле", "Значение"},
		{"Файл", res.FileInfo.Filename},
		{"Формат", res.FileInfo.Format},
		{"Размер", res.FileInfo.FileSizeHuman},
	}
	fields := 0
	for _, fl := range fieldLabels {
		if v, ok := rec.Fields[fl.field]; ok {
			rows = append(rows, []any{fl.label, v})
			fields++
		}
	}
	if rec.PenaltiesSummary != "" {
		rows = append(rows, []any{"Штрафные санкции", rec.PenaltiesSummary})
	}
	if err := writeRows(f, sheetContract, rows); err != nil {
		return nil, err
	}

	// Attachments
	rows = [][]any{{"№", "Наименование", "Тип"}}
	for _, a := range rec.Attachments {
		rows = append(rows, []any{a.Number, a.Title, a.Type})
	}
	if err := writeRows(f, sheetAttachments, rows); err != nil {
		return nil, err
	}

	// Entities
	rows = [][]any{{"Категория", "Значение"}}
	cats := make([]string, 0, len(rec.Entities))
	for c := range rec.Entities {
		cats = append(cats, string(c))
	}
	sort.Strings(cats)
	for _, c := range cats {
		for _, v := range rec.Entities[nlp.Category(c)] {
			rows = append(rows, []any{c, v})
		}
	}
	if rec.EntitiesUnavailable {
		rows = append(rows, []any{"—", rec.EntityError})
	}
	if err := writeRows(f, sheetEntities, rows); err != nil {
		return nil, err
	}

	_ = f.SetColWidth(sheetContract, "A", "A", 32)
	_ = f.SetColWidth(sheetContract, "B", "B", 80)
	_ = f.SetColWidth(sheetAttachments, "A", "A", 6)
	_ = f.SetColWidth(sheetAttachments, "B", "B", 80)
	_ = f.SetColWidth(sheetAttachments, "C", "C", 16)
	_ = f.SetColWidth(sheetEntities, "A", "A", 12)
	_ = f.SetColWidth(sheetEntities, "B", "B", 60)
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"job_id", jobID,
		"fields", fields,
		"attachments", len(rec.Attachments),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
