// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - RedisWindow / MemoryWindow: janela deslizante por usuário (ZSET no Redis ou em memória)
//   - RedisThreads / MemoryThreads: threads com requisição em andamento (lease com token do dono)
//   - SendPacer: token bucket por canal usando golang.org/x/time/rate para espaçar envios
//   - ChanPool: semáforo que limita chamadas simultâneas ao agente
//   - RedisStatsStore / MemoryStatsStore: contadores de desfecho do dispatcher
package infra
