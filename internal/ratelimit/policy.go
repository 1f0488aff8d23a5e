package ratelimit

import "time"

// Policy caps MaxAttempts per Window for one kind of action.
type Policy struct {
	Name        string
	MaxAttempts int
	Window      time.Duration
}

func (p Policy) valid() bool {
	return p.MaxAttempts > 0 && p.Window > 0
}

// Preset policies shared by the public forms and the back office.
var (
	Login         = Policy{Name: "login", MaxAttempts: 5, Window: 300 * time.Second}
	Registration  = Policy{Name: "registration", MaxAttempts: 3, Window: 600 * time.Second}
	Contact       = Policy{Name: "contact", MaxAttempts: 3, Window: 600 * time.Second}
	Admission     = Policy{Name: "admission", MaxAttempts: 2, Window: 900 * time.Second}
	PasswordReset = Policy{Name: "password_reset", MaxAttempts: 3, Window: 900 * time.Second}
	AdminWrite    = Policy{Name: "admin_write", MaxAttempts: 20, Window: 60 * time.Second}
)

// Key joins a policy name and a natural identifier into a limiter key.
func Key(p Policy, id string) string {
	return p.Name + ":" + id
}
