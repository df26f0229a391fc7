package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/marfim-stock/backend-go/internal/analytics"
	"github.com/andresuchdata/marfim-stock/backend-go/internal/domain"
)

const systemPrompt = "Você é um especialista em logística e gestão de estoque. Forneça respostas curtas, diretas e técnicas, em português do Brasil."

// promptItems caps how many rows of each list go into a prompt.
const promptItems = 10

// Completer is the part of Client the summarizer needs.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Summarizer turns reports into short written recommendations.
type Summarizer struct {
	llm Completer
}

func NewSummarizer(c Completer) *Summarizer {
	return &Summarizer{llm: c}
}

// Summarize asks for an overview of the stock situation in report.
func (s *Summarizer) Summarize(ctx context.Context, report *domain.Report) (string, error) {
	return s.llm.Complete(ctx, systemPrompt, ReportPrompt(report))
}

// AnalyzeItem asks for a buy/no-buy recommendation for one item.
func (s *Summarizer) AnalyzeItem(ctx context.Context, report *domain.Report, item string) (string, error) {
	prompt, ok := ItemPrompt(report, item)
	if !ok {
		return "", fmt.Errorf("item %q not found in report", item)
	}
	return s.llm.Complete(ctx, systemPrompt, prompt)
}

// ReportPrompt renders the alert summary and the head of the alert and purchase lists.
func ReportPrompt(r *domain.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Relatório de estoque gerado em %s (%d itens, %d lançamentos).\n\n", r.GeneratedAt.Format("02/01/2006 15:04"), r.Items, r.Transactions)
	fmt.Fprintf(&b, "ALERTAS: %d críticos, %d urgentes, %d em atenção, %d normais.\n",
		r.AlertSummary.Critical, r.AlertSummary.Urgent, r.AlertSummary.Attention, r.AlertSummary.Normal)

	if len(r.Alerts) > 0 {
		b.WriteString("\nITENS MAIS CRÍTICOS:\n")
		for _, a := range head(r.Alerts) {
			fmt.Fprintf(&b, "- %s [%s]: saldo %.2f, consumo 30d %.2f, cobertura %s\n", a.ItemID, a.Severity, a.Balance, a.Consumption30d, coverageText(a.CoverageDays, a.CoverageState))
		}
	}
	if len(r.Purchases) > 0 {
		b.WriteString("\nSUGESTÃO DE COMPRA:\n")
		for _, p := range head(r.Purchases) {
			fmt.Fprintf(&b, "- %s [%s]: comprar %.0f (cobertura atual %.1f dias)\n", p.ItemID, p.Urgency, p.SuggestedQty, p.CoverageDays)
		}
	}
	if n := len(r.Anomalies); n > 0 {
		fmt.Fprintf(&b, "\n%d anomalias detectadas nos lançamentos.\n", n)
	}

	b.WriteString("\nTAREFA:\nResuma a situação do estoque e indique as três ações mais importantes para esta semana.")
	return b.String()
}

// ItemPrompt renders what the report knows about one item. ok is false when the item is absent.
func ItemPrompt(r *domain.Report, item string) (string, bool) {
	key := analytics.NormalizeKey(item)

	var consumption *domain.ItemWindows
	for i := range r.Consumption {
		if analytics.NormalizeKey(r.Consumption[i].ItemID) == key {
			consumption = &r.Consumption[i]
			break
		}
	}
	if consumption == nil {
		return "", false
	}

	var b strings.Builder
	unit := consumption.Unit
	if unit == "" {
		unit = "UN"
	}
	fmt.Fprintf(&b, "Analise o estoque do item: %s\n\nDADOS ATUAIS:\n", consumption.ItemID)
	fmt.Fprintf(&b, "- Unidade de medida: %s\n- Saldo em mãos: %.2f %s\n", unit, consumption.Balance, unit)
	fmt.Fprintf(&b, "- Cobertura (30 dias): %s\n", coverageText(consumption.CoverageDays, consumption.CoverageState))
	for _, w := range consumption.Windows {
		fmt.Fprintf(&b, "- Consumo %d dias: %.2f (média diária %.2f)\n", w.WindowDays, w.TotalExit, w.DailyMean)
	}
	for _, p := range r.Planning {
		if analytics.NormalizeKey(p.ItemID) == key {
			fmt.Fprintf(&b, "- Estoque de segurança %.2f, ponto de pedido %.2f, status %s\n", p.SafetyStock, p.ReorderPoint, p.Status)
		}
	}
	for _, p := range r.Purchases {
		if analytics.NormalizeKey(p.ItemID) == key {
			fmt.Fprintf(&b, "- Compra sugerida: %.0f %s (%s)\n", p.SuggestedQty, unit, p.Urgency)
		}
	}

	fmt.Fprintf(&b, "\nTAREFA:\nO estoque está em nível crítico? Recomende se devo comprar mais agora e em qual quantidade aproximada (usando a unidade %s).", unit)
	return b.String(), true
}

func coverageText(days float64, state domain.CoverageState) string {
	switch state {
	case domain.CoverageUnbounded:
		return "sem consumo"
	case domain.CoverageNegative:
		return "saldo negativo"
	default:
		return fmt.Sprintf("%.1f dias", days)
	}
}

func head[T any](list []T) []T {
	if len(list) > promptItems {
		return list[:promptItems]
	}
	return list
}
