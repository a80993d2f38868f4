package cqrs

// ---------- User queries ----------

type GetUserQuery struct {
	UserID string
}

// PageQuery is shared by every paged admin listing. Status and Type are only
// read by the card code and recharge listings respectively.
type PageQuery struct {
	PageNum  int
	PageSize int
	Search   string
	Status   string
	Type     string
}

// ---------- Email queries ----------

// GetEmailRecordQuery is subject to an ownership check unless IsAdmin.
type GetEmailRecordQuery struct {
	ID               string
	RequestingUserID string
	IsAdmin          bool
}

type ListUserEmailsQuery struct {
	UserID           string
	RequestingUserID string
	IsAdmin          bool
}

type ListRulesQuery struct {
	UserID  string
	IsAdmin bool
}

// ---------- Recharge queries ----------

type ListRechargeRecordsQuery struct {
	UserID string
}
