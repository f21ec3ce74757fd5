// Package insights generates Gemini-backed commentary on the projection:
// a CFO-style written analysis of the timeline and a chat assistant that
// answers questions with the current assets and balances as context.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"nakit/internal/core"
	"nakit/internal/projection"
)

const (
	DefaultModel = "gemini-2.0-flash"

	maxAnalysisPeriods = 30
	maxChatPeriods     = 10
)

type Analyst struct {
	client *genai.Client
	model  string
}

func NewAnalyst(ctx context.Context, apiKey, model string) (*Analyst, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing Gemini API key")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Analyst{client: client, model: model}, nil
}

// AnalyzeCashFlow asks the model for a written assessment of the projection.
func (a *Analyst) AnalyzeCashFlow(ctx context.Context, periods []projection.FlowPeriod) (string, error) {
	prompt, err := buildAnalysisPrompt(periods)
	if err != nil {
		return "", err
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate analysis: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// Chat answers a free-form question with the current financial picture as
// system context.
func (a *Analyst) Chat(ctx context.Context, message string, assets []core.Asset, periods []projection.FlowPeriod) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("empty message")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: buildChatSystemPrompt(assets, periods)}},
		},
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(message), config)
	if err != nil {
		return "", fmt.Errorf("generate chat response: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return text, nil
}

// MarketReport is live market commentary together with the web pages the
// model cited for it.
type MarketReport struct {
	Text    string         `json:"text"`
	Sources []MarketSource `json:"sources"`
}

type MarketSource struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

const marketPrompt = "Türkiye güncel ekonomi verileri: TCMB yıl sonu enflasyon beklentisi, USD/TRY ve EUR/TRY kur beklentileri, sanayi üretimi ve kısa vadeli ekonomik görünüm özeti."

// MarketInsights asks the model for current Turkish market commentary,
// grounded on Google Search so the figures are live rather than recalled
// from training data.
func (a *Analyst) MarketInsights(ctx context.Context) (MarketReport, error) {
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}},
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(marketPrompt), config)
	if err != nil {
		return MarketReport{}, fmt.Errorf("generate market insights: %w", err)
	}

	report := MarketReport{Text: resp.Text()}
	if report.Text == "" {
		return MarketReport{}, fmt.Errorf("empty response from model")
	}
	report.Sources = groundingSources(resp)
	return report, nil
}

// groundingSources collects the cited web pages, dropping chunks without a
// usable title and link.
func groundingSources(resp *genai.GenerateContentResponse) []MarketSource {
	var sources []MarketSource
	for _, cand := range resp.Candidates {
		if cand == nil || cand.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Web == nil || chunk.Web.Title == "" || chunk.Web.URI == "" {
				continue
			}
			sources = append(sources, MarketSource{Title: chunk.Web.Title, URI: chunk.Web.URI})
		}
	}
	return sources
}

type periodSummary struct {
	Period string `json:"period"`
	In     string `json:"in"`
	Out    string `json:"out"`
	Bal    string `json:"bal"`
}

// buildAnalysisPrompt compacts the timeline to the periods with actual
// movement before handing it to the model, so quiet stretches do not eat the
// context window.
func buildAnalysisPrompt(periods []projection.FlowPeriod) (string, error) {
	var summary []periodSummary
	for _, p := range periods {
		if !p.Incomes.IsPositive() && !p.Expenses.IsPositive() {
			continue
		}
		summary = append(summary, periodSummary{
			Period: p.Label,
			In:     p.Incomes.Round(0).String(),
			Out:    p.Expenses.Round(0).String(),
			Bal:    p.Balance.Round(0).String(),
		})
		if len(summary) == maxAnalysisPeriods {
			break
		}
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("marshal period summary: %w", err)
	}

	return fmt.Sprintf(`Aşağıdaki nakit akışı projeksiyon verilerini analiz et:
%s

Lütfen şu başlıklarla Türkçe bir analiz yap:
1. Nakit Akışı Özeti (Genel gidişat ve likidite durumu)
2. Kritik Dönemler (Özellikle bakiyenin riskli seviyelere düştüğü tarihler)
3. Stratejik Tavsiyeler (Ödemeler ve tahsilat yönetimi için öneriler)

Yanıtı profesyonel bir CFO tonunda, teknik ama anlaşılır maddeler halinde ver.`, data), nil
}

func buildChatSystemPrompt(assets []core.Asset, periods []projection.FlowPeriod) string {
	var assetParts []string
	for _, a := range assets {
		if !a.Included {
			continue
		}
		assetParts = append(assetParts, fmt.Sprintf("%s (%s %s)", a.Name, a.Amount, a.Currency))
	}
	assetSummary := strings.Join(assetParts, ", ")
	if assetSummary == "" {
		assetSummary = "Tanımlı varlık yok."
	}

	var balanceParts []string
	for i, p := range periods {
		if i == maxChatPeriods {
			break
		}
		balanceParts = append(balanceParts, fmt.Sprintf("%s: %s", p.Label, p.Balance.Round(0)))
	}

	return fmt.Sprintf(`Sen bir nakit akışı finans asistanısın.
Kullanıcının mevcut varlıkları: %s.
Gelecek periyot bakiye tahmini: %s.

Kullanıcının finansal sorularına net, profesyonel ve verilere dayalı yanıt ver.`,
		assetSummary, strings.Join(balanceParts, ", "))
}
