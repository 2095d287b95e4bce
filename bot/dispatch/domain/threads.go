package domain

import "context"

// ThreadTracker marca quais threads têm uma requisição em andamento.
//
// A semântica é: TryAcquire retorna ok=false se a thread já está marcada.
// Cada aquisição bem-sucedida devolve um token de posse e deve ser seguida
// de exatamente um Release com esse token, em qualquer caminho de saída.
// Release com token que não é mais o dono (lease expirado e retomado por
// outra requisição) não libera nada.
type ThreadTracker interface {
	TryAcquire(ctx context.Context, threadID string) (token string, ok bool, err error)
	Release(ctx context.Context, threadID, token string) error
}
