package infra

import "context"

// ChanPool é um semáforo baseado em channel com capacidade fixa.
// No bot ele limita quantas chamadas ao agente rodam ao mesmo tempo no processo.
type ChanPool struct {
	sem chan struct{}
}

func NewChanPool(max int) *ChanPool {
	return &ChanPool{sem: make(chan struct{}, max)}
}

// Acquire implementa domain.SlotPool.
func (p *ChanPool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case p.sem <- struct{}{}:
		var released bool
		return func() {
			if released {
				return
			}
			released = true
			<-p.sem
		}, true
	case <-ctx.Done():
		return nil, false
	}
}

// InFlight é o número de vagas ocupadas agora.
func (p *ChanPool) InFlight() int { return len(p.sem) }
