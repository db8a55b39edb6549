package models

import "time"

type TransactionType string

const (
	TransactionTopUp             TransactionType = "TOP_UP"
	TransactionPlatformPurchase  TransactionType = "PLATFORM_PURCHASE"
	TransactionMentorshipPayment TransactionType = "MENTORSHIP_PAYMENT"
)

type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "PENDING"
	TransactionApproved TransactionStatus = "APPROVED"
	TransactionRejected TransactionStatus = "REJECTED"
)

type Wallet struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Balance   Money     `json:"balance"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Transaction struct {
	ID              int64             `json:"id"`
	UserID          int64             `json:"userId"`
	Type            TransactionType   `json:"type"`
	Amount          Money             `json:"amount"`
	Status          TransactionStatus `json:"status"`
	Description     string            `json:"description"`
	SenderWalletRef *string           `json:"senderWalletRef,omitempty"`
	AdminWalletRef  *string           `json:"adminWalletRef,omitempty"`
	ReceiptURL      *string           `json:"receiptUrl,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	ResolvedAt      *time.Time        `json:"resolvedAt,omitempty"`
}

type WalletView struct {
	Balance      Money          `json:"balance"`
	Transactions []Transaction  `json:"transactions"`
	Meta         PaginationMeta `json:"meta"`
}
