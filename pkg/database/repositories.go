// Copyright 2025 Certen Protocol

package database

// Repositories aggregates every repository the service needs, constructed
// once at startup from a shared Client.
type Repositories struct {
	Accounts         *AccountRepository
	Transactions     *TransactionRepository
	Batches          *BatchRepository
	DASVerifications *DASVerificationRepository
}

// NewRepositories constructs the full repository set over client.
func NewRepositories(client *Client) *Repositories {
	return &Repositories{
		Accounts:         NewAccountRepository(client),
		Transactions:     NewTransactionRepository(client),
		Batches:          NewBatchRepository(client),
		DASVerifications: NewDASVerificationRepository(client),
	}
}
