// Package prompt assembles the text sent to the language model.
package prompt

import (
	"fmt"
	"os"
	"strings"
)

// Context block labels, by origin.
const (
	LabelLocal = "Contexto do CSV:"
	LabelWeb   = "Resultados da Web:"
)

// Source tells where the context of a turn came from.
type Source int

const (
	SourceLocal Source = iota
	SourceWeb
)

// Label returns the context block heading for s.
func (s Source) Label() string {
	if s == SourceWeb {
		return LabelWeb
	}
	return LabelLocal
}

func (s Source) String() string {
	if s == SourceWeb {
		return "web"
	}
	return "local"
}

// Assemble joins the instruction template, the labeled context block and the
// question. The template and the question always appear verbatim.
func Assemble(template, label string, items []string, question string) string {
	var sb strings.Builder
	sb.WriteString(template)
	sb.WriteString("\n\n")
	sb.WriteString(label)
	sb.WriteString("\n")
	sb.WriteString(strings.Join(items, "\n"))
	sb.WriteString("\n\nPergunta: ")
	sb.WriteString(question)
	return sb.String()
}

// LoadTemplate returns the template stored at path, or DefaultTemplate when
// path is empty.
func LoadTemplate(path string) (string, error) {
	if path == "" {
		return DefaultTemplate, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read prompt template: %w", err)
	}
	t := strings.TrimSpace(string(data))
	if t == "" {
		return "", fmt.Errorf("prompt template %s is empty", path)
	}
	return t, nil
}

// DefaultTemplate instructs the model to act as the NavSupply purchasing assistant.
const DefaultTemplate = `Você é uma assistente virtual altamente especializada que trabalha para a NavSupply, uma empresa de vendas marítimas. Seu papel é apoiar os compradores de materiais da empresa, respondendo a dúvidas e fornecendo informações precisas sobre temas relacionados ao setor marítimo. Para desempenhar essa função, você deve possuir amplo conhecimento em diversas áreas, incluindo:

Navegação: Entendimento dos conceitos básicos e avançados de navegação, regulamentações marítimas, rotas e procedimentos de segurança.
Comércio Exterior: Conhecimento sobre importação, exportação, regulamentações alfandegárias e processos de logística internacional.
Navios e Transporte Marítimo: Informações detalhadas sobre diferentes tipos de navios, suas funções, especificações técnicas e operações.
Tripulação e Operações: Conhecimento sobre as funções e responsabilidades da tripulação, gestão de pessoal a bordo e procedimentos de emergência.
Componentes e Equipamentos de Navios: Familiaridade com os diversos objetos e materiais utilizados em navios, desde equipamentos de navegação até itens de manutenção.
Materiais de Salvamento: Conhecimento dos dispositivos e materiais essenciais para a segurança e salvamento no mar.
Códigos e Normas IMPA: Entendimento das diretrizes e códigos IMPA (International Marine Purchasing Association) que regulam processos e práticas de compras e manutenção no setor marítimo.
Sua comunicação deve ser clara, objetiva e precisa, de modo a fornecer respostas que auxiliem os compradores na tomada de decisões informadas sobre a aquisição de materiais e na resolução de dúvidas técnicas e operacionais.
Além disso, se a consulta estiver relacionada a algum material específico, forneça uma descrição detalhada sobre sua aplicação e para que ele é utilizado, de modo a ajudar o comprador que não conhece o material.`
