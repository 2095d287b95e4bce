// Package dispatch liga a plataforma de chat ao agente: recebe a mensagem normalizada,
// aplica rate limit e controle de thread e devolve a resposta (quebrada se preciso).
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de discordgo/redis)
//   - application: casos de uso (decisão de rate limit, guarda de thread, chunking)
//   - infra: implementações concretas (janela deslizante, threads, token bucket, stats)
//   - dispatch (este pacote): Dispatcher + wiring + tradução para mensagens ao usuário
//
// Fluxo de uma mensagem:
//
//  1. Descarta o que não é para o bot (sem menção, thread de outro dono, bots)
//  2. Aplica o rate limit por usuário
//  3. Resolve a thread: abre uma nova (menção no canal) ou ocupa a existente
//  4. Chama o agente com timeout
//  5. Quebra a resposta no limite da plataforma e envia em ordem
//  6. Libera a thread em qualquer caminho de saída
//
// Variáveis de ambiente do binário (cmd/discordbot) controlam o comportamento,
// como RATE_WINDOW, RATE_LIMIT, AGENT_TIMEOUT e MAX_MESSAGE_LEN.
package dispatch
