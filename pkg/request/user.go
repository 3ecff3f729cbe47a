package request

import (
	"context"
	"fmt"
)

// User is the identity attached to an event.
type User struct {
	ID        string `json:"id,omitempty"`
	Username  string `json:"username,omitempty"`
	IPAddress string `json:"ip_address,omitempty"`
}

// IsEmpty reports whether no field is set.
func (u *User) IsEmpty() bool {
	return u == nil || (u.ID == "" && u.Username == "" && u.IPAddress == "")
}

// GetUser derives the user of p using the default snapshotter.
func GetUser(p Provider) *User {
	return defaultSnapshotter.GetUser(p)
}

// UserContext derives the user of the provider in scope for ctx.
func (s *Snapshotter) UserContext(ctx context.Context) *User {
	return s.GetUser(s.Resolve(ctx))
}

// GetUser derives the user of p from its principal and remote address. It
// returns nil when p is nil. The two reads are independent: a failure in one
// is logged and leaves only its own fields empty.
func (s *Snapshotter) GetUser(p Provider) *User {
	if p == nil {
		return nil
	}

	user := &User{}
	if id, name, err := s.principal(p); err != nil {
		s.diagnostics().Field("principal", err)
	} else {
		user.ID = id
		user.Username = name
	}

	if addr, err := s.remoteAddress(p); err != nil {
		s.diagnostics().Field("remote_address", err)
	} else {
		user.IPAddress = addr
	}
	return user
}

func (s *Snapshotter) principal(p Provider) (id, name string, err error) {
	defer func() {
		if r := recover(); r != nil {
			id, name, err = "", "", fmt.Errorf("panic: %v", r)
		}
	}()
	principal, err := p.Principal()
	if err != nil || principal == nil {
		return "", "", err
	}
	return principal.ID(), principal.Name(), nil
}

func (s *Snapshotter) remoteAddress(p Provider) (addr string, err error) {
	defer func() {
		if r := recover(); r != nil {
			addr, err = "", fmt.Errorf("panic: %v", r)
		}
	}()
	return p.RemoteAddress()
}
