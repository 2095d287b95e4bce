// Package domain define contratos e tipos de domínio do pipeline de atendimento do bot:
// rate limit por usuário, controle de threads em andamento, mensagens de entrada e o
// agente externo.
//
// Este pacote não depende de discordgo, redis nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar regras de negócio
// de detalhes de infraestrutura.
package domain
