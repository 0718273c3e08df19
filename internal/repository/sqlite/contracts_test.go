package sqlite

import (
	borrowerdomain "github.com/booky/lending/internal/domain/borrower"
	loandomain "github.com/booky/lending/internal/domain/loan"
)

var (
	_ borrowerdomain.Repository = (*BorrowerRepository)(nil)
	_ loandomain.Repository     = (*LoanRepository)(nil)
)
