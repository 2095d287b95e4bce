package application

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const fence = "```"

// closeReserve é o maior sufixo de fechamento ("\n```").
const closeReserve = 4

type fenceState struct {
	open bool
	lang string
}

// scan aplica ao estado os delimitadores ``` encontrados em s.
func (f fenceState) scan(s string) fenceState {
	for {
		i := strings.Index(s, fence)
		if i < 0 {
			return f
		}
		s = s[i+len(fence):]
		if f.open {
			f = fenceState{}
			continue
		}
		f = fenceState{open: true, lang: fenceLang(s)}
	}
}

func fenceLang(rest string) string {
	end := strings.IndexFunc(rest, unicode.IsSpace)
	if end < 0 {
		end = len(rest)
	}
	lang := rest[:end]
	if strings.Contains(lang, "`") {
		return ""
	}
	return lang
}

func (f fenceState) reopen() string {
	if !f.open {
		return ""
	}
	return fence + f.lang + "\n"
}

type piece struct {
	prefix string
	raw    string
	suffix string
}

func (p piece) String() string { return p.prefix + p.raw + p.suffix }

// Chunk quebra text em pedaços de até max runas.
//
// Prefere cortar no fim de uma frase, depois em quebra de linha, depois em espaço.
// Um bloco ``` aberto no corte é fechado no fim do pedaço e reaberto (com a mesma
// linguagem) no início do próximo. Uma palavra maior que max sai inteira, num
// pedaço próprio maior que o limite.
func Chunk(text string, max int) []string {
	ps := split(text, max)
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.String())
	}
	return out
}

func split(text string, max int) []piece {
	if text == "" {
		return nil
	}
	if max <= 0 {
		return []piece{{raw: text}}
	}

	runes := []rune(text)
	var out []piece
	var state fenceState

	for start := 0; start < len(runes); {
		prefix := state.reopen()
		room := max - utf8.RuneCountInString(prefix)

		// o resto cabe inteiro e não deixa bloco aberto: sem reserva de fechamento
		if len(runes)-start <= room {
			raw := string(runes[start:])
			if next := state.scan(raw); !next.open {
				out = append(out, piece{prefix: prefix, raw: raw})
				break
			}
		}

		// só reserva o fechamento se um bloco pode terminar aberto neste pedaço
		budget := room
		window := string(runes[start:min(start+room, len(runes))])
		if state.open || strings.Contains(window, fence) {
			budget -= closeReserve
		}
		if budget < 1 {
			budget = 1
		}
		end := cut(runes, start, budget)
		raw := string(runes[start:end])
		next := state.scan(raw)

		p := piece{prefix: prefix, raw: raw}
		if next.open {
			p.suffix = closer(raw)
		}
		out = append(out, p)

		state = next
		start = end
	}
	return out
}

func closer(raw string) string {
	if strings.HasSuffix(raw, "\n") {
		return fence
	}
	return "\n" + fence
}

// cut devolve o índice (exclusivo) onde o pedaço que começa em start termina.
func cut(runes []rune, start, budget int) int {
	limit := start + budget
	if limit >= len(runes) {
		return len(runes)
	}

	// espaços iniciais não contam como ponto de corte
	lo := start
	for lo < limit && unicode.IsSpace(runes[lo]) {
		lo++
	}

	// fim de frase: '.' seguido de espaço (ou colado no limite)
	for p := limit; p > lo; p-- {
		if runes[p-1] == '.' && unicode.IsSpace(runes[p]) {
			return p
		}
	}
	for q := limit - 1; q > lo; q-- {
		if runes[q] == '\n' {
			return q + 1
		}
	}
	for q := limit - 1; q > lo; q-- {
		if unicode.IsSpace(runes[q]) {
			return q + 1
		}
	}

	// espaço inicial seguido de palavra que passa do limite: sai sozinho,
	// e a palavra começa o próximo pedaço
	if lo > start {
		return lo
	}

	// palavra maior que a janela: vai inteira
	end := limit
	for end < len(runes) && !unicode.IsSpace(runes[end]) {
		end++
	}
	return end
}
