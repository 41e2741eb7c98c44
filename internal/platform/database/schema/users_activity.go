package schema

// UserActivityTable represents the 'users.activity' table
type UserActivityTable struct {
	Table     string
	ID        string
	AccountID string
	Email     string
	Action    string
	IPAddress string
	UserAgent string
	CreatedAt string
}

// UserActivity is the schema definition for users.activity
var UserActivity = UserActivityTable{
	Table:     "users.activity",
	ID:        "id",
	AccountID: "accountid",
	Email:     "email",
	Action:    "action",
	IPAddress: "ipaddress",
	UserAgent: "useragent",
	CreatedAt: "createdat",
}

// Columns returns all standard column names
func (t UserActivityTable) Columns() []string {
	return []string{t.ID, t.AccountID, t.Email, t.Action, t.IPAddress, t.UserAgent, t.CreatedAt}
}
