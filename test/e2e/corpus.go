// Package e2e provides end-to-end tests over a generated corpus of office documents.
package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// E2EDocument is a document in the E2E corpus.
type E2EDocument struct {
	ID      string
	Title   string
	Content string
}

// QueryTestCase defines a query and the document ID(s) of which at least one must be returned.
type QueryTestCase struct {
	Query          string
	ExpectedDocIDs []string
	Description    string
}

// Corpus holds documents and query test cases for E2E tests.
type Corpus struct {
	Documents    []E2EDocument
	TestCases    []QueryTestCase
	TotalDocs    int
	TotalQueries int
}

type topic struct {
	title   string
	phrase  string
	content string
}

// topics each carry a signature phrase that appears in no other topic.
var topics = []topic{
	{"Quarterly Sales Report", "quarterly sales revenue", "The quarterly sales revenue grew by twelve percent. Regional teams exceeded the plan in the north."},
	{"Квартальный отчёт", "квартальный отчёт продажи", "Квартальный отчёт продажи показывает рост выручки. Филиалы перевыполнили план."},
	{"Vacation Policy", "vacation policy carryover", "Employees accrue paid leave monthly. The vacation policy carryover limit is ten days."},
	{"Travel Expenses", "travel expense reimbursement", "Submit receipts within thirty days. Travel expense reimbursement requires manager approval."},
	{"Backup Procedure", "nightly backup rotation", "Databases are dumped at midnight. The nightly backup rotation keeps fourteen copies offsite."},
	{"Onboarding Checklist", "onboarding laptop badge", "New hires receive accounts on day one. The onboarding laptop badge pickup happens at reception."},
	{"Procurement Rules", "procurement tender threshold", "Purchases above the limit need three bids. The procurement tender threshold is fifty thousand."},
	{"Инструкция по охране труда", "охрана труда инструктаж", "Работники проходят вводный инструктаж. Охрана труда инструктаж повторяется ежегодно."},
	{"Incident Runbook", "incident escalation pager", "Severity one incidents page the duty engineer. Incident escalation pager rotation is weekly."},
	{"Data Retention", "retention schedule archive", "Records are classified on creation. The retention schedule archive moves files after seven years."},
	{"Supplier Contract", "supplier penalty clause", "Deliveries are due within ten business days. The supplier penalty clause applies after delays."},
	{"Board Meeting Minutes", "board resolution dividend", "The board approved the annual budget. A board resolution dividend payout was postponed."},
	{"Warehouse Inventory", "warehouse stocktake discrepancy", "Stock is counted every quarter. Warehouse stocktake discrepancy above two percent is escalated."},
	{"Marketing Plan", "campaign launch newsletter", "The spring campaign targets existing customers. Campaign launch newsletter goes out in April."},
	{"Security Awareness", "phishing simulation training", "Staff receive monthly security tips. Phishing simulation training results are reported to managers."},
	{"Договор аренды", "арендная плата индексация", "Арендатор вносит платежи ежемесячно. Арендная плата индексация проводится раз в год."},
	{"Customer Support Guide", "support ticket triage", "Tickets are answered within four hours. Support ticket triage assigns priority by impact."},
	{"Fleet Maintenance", "vehicle maintenance mileage", "Company cars are serviced regularly. Vehicle maintenance mileage interval is fifteen thousand kilometers."},
	{"Energy Audit", "energy audit consumption", "Lighting was replaced with LEDs. The energy audit consumption baseline dropped by a fifth."},
	{"Training Budget", "training budget certification", "Each engineer has an annual allowance. Training budget certification costs are reimbursed."},
	{"Remote Work Policy", "remote work equipment stipend", "Staff may work from home three days a week. Remote work equipment stipend covers a monitor."},
	{"Пожарная безопасность", "эвакуация огнетушитель", "План эвакуации висит на каждом этаже. Эвакуация огнетушитель проверяются ежеквартально."},
	{"Invoice Processing", "invoice approval workflow", "Invoices are scanned on arrival. The invoice approval workflow routes them to cost center owners."},
	{"Product Roadmap", "roadmap milestone beta", "The mobile release is planned for autumn. Roadmap milestone beta opens to pilot customers."},
	{"Quality Control", "defect sampling inspection", "Every batch is sampled before shipping. Defect sampling inspection follows the AQL tables."},
	{"Payroll Calendar", "payroll cutoff bonus", "Salaries are paid on the fifth. Payroll cutoff bonus submissions close on the twentieth."},
	{"IT Asset Register", "asset register serial", "Hardware is tagged on delivery. The asset register serial numbers are audited yearly."},
	{"Годовой бюджет", "бюджет капитальные затраты", "Бюджет утверждается советом директоров. Бюджет капитальные затраты включает новое оборудование."},
	{"Sustainability Report", "carbon emissions scope", "The company reports its footprint annually. Carbon emissions scope two fell after the switch to renewables."},
	{"Legal Hold Notice", "legal hold preservation", "Relevant documents must not be deleted. Legal hold preservation applies until counsel releases it."},
	{"Office Relocation", "relocation moving crates", "The team moves to the new floor in June. Relocation moving crates are delivered a week before."},
	{"Vendor Risk Review", "vendor risk questionnaire", "Critical suppliers are reviewed annually. The vendor risk questionnaire covers data protection."},
	{"Cafeteria Menu", "cafeteria vegetarian option", "Lunch is served from noon. A cafeteria vegetarian option is available every day."},
	{"Parking Rules", "parking permit visitor", "Employees park in the lower level. A parking permit visitor slip is issued at the front desk."},
	{"Grant Application", "grant application deadline", "The research grant funds two positions. The grant application deadline is the end of March."},
	{"Учебный план", "учебный план семинар", "Сотрудники выбирают курсы на год. Учебный план семинар по переговорам обязателен."},
	{"Press Release", "press release embargo", "The announcement is ready for distribution. The press release embargo lifts on Monday."},
	{"Disaster Recovery Test", "failover drill datacenter", "Systems switch to the standby site. The failover drill datacenter test took forty minutes."},
	{"Performance Review", "performance review calibration", "Managers rate goals twice a year. Performance review calibration sessions align ratings."},
	{"Archive Digitization", "scanning archive microfilm", "Paper files are digitized by a contractor. Scanning archive microfilm reels starts next quarter."},
}

// BuildCorpus returns a corpus of n documents and one query per distinct topic.
func BuildCorpus(n int) *Corpus {
	docs := buildDocuments(n)
	cases := buildQueryTestCases(docs)
	return &Corpus{
		Documents:    docs,
		TestCases:    cases,
		TotalDocs:    len(docs),
		TotalQueries: len(cases),
	}
}

func buildDocuments(n int) []E2EDocument {
	out := make([]E2EDocument, 0, n)
	for i := 0; i < n; i++ {
		t := topics[i%len(topics)]
		title := t.title
		if i >= len(topics) {
			title = fmt.Sprintf("%s (%d)", t.title, i+1)
		}
		out = append(out, E2EDocument{
			ID:      fmt.Sprintf("e2e-doc-%03d", i+1),
			Title:   title,
			Content: t.content,
		})
	}
	return out
}

func buildQueryTestCases(docs []E2EDocument) []QueryTestCase {
	var cases []QueryTestCase
	for _, t := range topics {
		var ids []string
		for _, d := range docs {
			if containsPhrase(d, t.phrase) {
				ids = append(ids, d.ID)
			}
		}
		if len(ids) == 0 {
			continue
		}
		cases = append(cases, QueryTestCase{
			Query:          t.phrase,
			ExpectedDocIDs: ids,
			Description:    fmt.Sprintf("query %q should return one of %v", t.phrase, ids),
		})
	}
	return cases
}

func containsPhrase(d E2EDocument, phrase string) bool {
	phrase = strings.ToLower(phrase)
	return strings.Contains(strings.ToLower(d.Title), phrase) || strings.Contains(strings.ToLower(d.Content), phrase)
}

// WriteFiles writes every document into dir, cycling through exts, and returns the
// file name written for each document ID.
func (c *Corpus) WriteFiles(dir string, exts []string) (map[string]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	names := make(map[string]string, len(c.Documents))
	for i, d := range c.Documents {
		ext := exts[i%len(exts)]
		name := d.ID + ext
		content, err := WriteMinimalFile(ext, d.Title+"\n\n"+d.Content)
		if err != nil {
			return nil, fmt.Errorf("fixture %s: %w", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), content, 0644); err != nil {
			return nil, err
		}
		names[d.ID] = name
	}
	return names, nil
}
