package constants

// Field names of the extracted contract record.
const (
	FieldContractNumber     = "contract_number"
	FieldContractType       = "contract_type"
	FieldContractDate       = "contract_date"
	FieldPlaceOfConclusion  = "place_of_conclusion"
	FieldCustomerName       = "customer_name"
	FieldCustomerType       = "customer_type"
	FieldCustomerINN        = "customer_inn"
	FieldCustomerOGRN       = "customer_ogrn"
	FieldCustomerDirector   = "customer_director_name"
	FieldContractorName     = "contractor_name"
	FieldContractorType     = "contractor_type"
	FieldContractorINN      = "contractor_inn"
	FieldContractorOGRN     = "contractor_ogrn"
	FieldContractorDirector = "contractor_director_name"

	FieldCustomerBankAccount   = "customer_bank_account"
	FieldContractorBankAccount = "contractor_bank_account"
	FieldCustomerBIK           = "customer_bik"
	FieldContractorBIK         = "contractor_bik"
	FieldCustomerCorrAccount   = "customer_correspondent_account"
	FieldContractorCorrAccount = "contractor_correspondent_account"
	FieldCustomerBankName      = "customer_bank_name"
	FieldContractorBankName    = "contractor_bank_name"

	FieldWorkObjectName     = "work_object_name"
	FieldWorkObjectAddress  = "work_object_address"
	FieldCadastralNumber    = "cadastral_number"
	FieldLandArea           = "land_area"
	FieldBuildingArea       = "building_area"
	FieldConstructionPermit = "construction_permit"
	FieldPermitDate         = "permit_date"
	FieldProjectCode        = "project_documentation_code"

	FieldWorkStartDate = "work_start_date"
	FieldDeadline      = "work_completion_deadline"

	FieldAmountInclVAT  = "amount_including_vat"
	FieldVATRate        = "vat_rate"
	FieldVATAmount      = "vat_amount"
	FieldRetention      = "retention_percentage"
	FieldPaymentTerms   = "payment_terms_days"
	FieldWarrantyMonths = "warranty_period_months"

	FieldPenaltyFirstWeek = "delay_penalty_first_week"
	FieldPenaltyAfterWeek = "delay_penalty_after_week"
	FieldLatePayment      = "late_payment_penalty"
	FieldDocumentPenalty  = "document_penalty_amount"
	FieldSitePenalty      = "site_violation_penalty"

	FieldAttachments = "attachments"
)

// Attachment types.
const (
	AttachmentEstimate     = "estimate"
	AttachmentSchedule     = "schedule"
	AttachmentProtocol     = "protocol"
	AttachmentForm         = "form"
	AttachmentTechnicalMap = "technical_map"
	AttachmentDrawing      = "drawing"
	AttachmentAct          = "act"
	AttachmentProject      = "project"
	AttachmentOther        = "other"
)
