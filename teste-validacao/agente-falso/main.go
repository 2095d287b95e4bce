package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Servidor compatível com /v1/chat/completions que devolve uma resposta longa,
// com bloco de código aberto, para validar o chunking no Discord.
func main() {
	size := 5000
	if v, err := strconv.Atoi(os.Getenv("ANSWER_SIZE")); err == nil && v > 0 {
		size = v
	}

	handler := func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		fmt.Printf("Log: pedido com %d mensagens (model=%s)\n", len(req.Messages), req.Model)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-falso",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   req.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": longAnswer(size),
				},
			}},
		})
	}

	http.HandleFunc("/v1/chat/completions", handler)
	http.HandleFunc("/chat/completions", handler)

	fmt.Println("Agente falso rodando em http://localhost:8081/v1/ (use OPENAI_BASE_URL)")
	if err := http.ListenAndServe(":8081", nil); err != nil {
		fmt.Printf("Erro ao subir o servidor: %s\n", err)
	}
}

// longAnswer monta texto + um bloco ```go que nunca fecha.
func longAnswer(size int) string {
	var b strings.Builder
	for b.Len() < size/4 {
		b.WriteString("This is a long explanation sentence. ")
	}
	b.WriteString("\n\n```go\n")
	for i := 0; b.Len() < size; i++ {
		fmt.Fprintf(&b, "fmt.Println(\"line %d\")\n", i)
	}
	return b.String()
}
