package domain

import "errors"

// UserError carrega a resposta que deve ir para o usuário.
// Usage=true indica erro de uso (comando malformado), que não é falha do bot.
type UserError struct {
	Reply string
	Usage bool
	Err   error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return e.Reply + ": " + e.Err.Error()
	}
	return e.Reply
}

func (e *UserError) Unwrap() error { return e.Err }

func Usage(reply string) error { return &UserError{Reply: reply, Usage: true} }

func Reject(reply string, err error) error { return &UserError{Reply: reply, Err: err} }

var ErrStoreUnavailable = errors.New("store unavailable")
