// Package application contém os casos de uso (regras de aplicação) do atendimento:
// decisão de rate limit, guarda de thread em andamento e quebra de respostas longas.
//
// Ele depende apenas do pacote domain e não conhece discordgo nem redis.
// Ex.: Service.Decide(ctx, key) retorna uma Decision (allow/deny + retry-after).
package application
