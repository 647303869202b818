package domain

// CanView reports whether member may read loan: admins always, everyone
// else only when listed as a borrower.
func CanView(member Member, loan *Loan) bool {
	if member.IsAdmin() {
		return true
	}

	for _, id := range loan.Borrowers {
		if id == member.ID {
			return true
		}
	}

	return false
}
