// utilitários pequenos de texto: menção, nome de thread e extensões de imagem.

package dispatch

import (
	"path"
	"regexp"
	"strings"
	"unicode/utf8"

	"chatbot-gateway/bot/dispatch/domain"
)

var mentionPattern = regexp.MustCompile(`<@!?(\d+)>`)

// StripMention remove as menções ao bot e apara o texto.
func StripMention(content, botID string) string {
	out := mentionPattern.ReplaceAllStringFunc(content, func(m string) string {
		sub := mentionPattern.FindStringSubmatch(m)
		if len(sub) == 2 && sub[1] == botID {
			return ""
		}
		return m
	})
	return strings.Join(strings.Fields(out), " ")
}

// Truncate corta em n runas.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// ImageURLs devolve as URLs dos anexos reconhecidos como imagem.
func ImageURLs(atts []domain.Attachment) []string {
	var out []string
	for _, a := range atts {
		if a.URL == "" {
			continue
		}
		ext := strings.ToLower(path.Ext(a.Filename))
		if imageExts[ext] || strings.HasPrefix(strings.ToLower(a.ContentType), "image/") {
			out = append(out, a.URL)
		}
	}
	return out
}
