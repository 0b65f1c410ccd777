package models

type UserRole string
type DocumentType string
type PaymentStatus string

const (
	UserRoleCustomer      UserRole = "customer"
	UserRoleCustomerCoach UserRole = "customer_coach"
	UserRoleAdmin         UserRole = "admin"

	DocumentTypeInvoice      DocumentType = "invoice"
	DocumentTypeCreditNote   DocumentType = "credit_note"
	DocumentTypeFinalInvoice DocumentType = "final_invoice"

	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusOpen     PaymentStatus = "open"
	PaymentStatusRefunded PaymentStatus = "refunded"
)
