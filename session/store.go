package session

// Store is the durable client-side state surviving restarts: the token pair
// and the persisted active-clinic id. It performs no validation of token
// contents; it is an opaque holder.
//
// Load returns (nil, nil) when no session is stored.
type Store interface {
	Save(s *Session) error
	Load() (*Session, error)
	Clear() error

	SaveActiveClinic(id string) error
	LoadActiveClinic() (string, error)
	ClearActiveClinic() error
}
