package llm

import (
	"strings"
)

// Persona describes the single analyst agent.
type Persona struct {
	Role      string
	Goal      string
	Backstory string
}

// FinancialAnalyst is the default persona.
var FinancialAnalyst = Persona{
	Role: "Senior Financial Analyst",
	Goal: "Analyze the provided financial document and extract accurate financial " +
		"information strictly based on document content. " +
		"Answer the user's query using factual data from the document.",
	Backstory: "You are a certified financial analyst with strong expertise in financial " +
		"statement analysis, risk evaluation, and investment assessment. " +
		"You do not speculate. You base all conclusions strictly on document data.",
}

// ResultKeys are the fields the task asks the model to return.
var ResultKeys = []string{
	"revenue",
	"expenses",
	"net_profit",
	"liabilities",
	"assets",
	"debt",
	"risk_analysis",
	"investment_summary",
}

const taskTemplate = `Analyze the following financial document content:

{document_content}

Extract:
- Revenue
- Expenses
- Net Profit
- Liabilities
- Assets
- Debt
- Risk Indicators

Answer the user's query: {query}

Provide structured JSON output.
Base your response strictly on the provided content.
Do not fabricate information.`

const expectedOutput = `Provide output in JSON format:

{
    "revenue": "",
    "expenses": "",
    "net_profit": "",
    "liabilities": "",
    "assets": "",
    "debt": "",
    "risk_analysis": "",
    "investment_summary": ""
}`

// SystemPrompt renders the persona as the system message.
func (p Persona) SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are ")
	b.WriteString(p.Role)
	b.WriteString(".\n")
	b.WriteString(p.Backstory)
	b.WriteString("\n\nYour personal goal is: ")
	b.WriteString(p.Goal)
	return b.String()
}

// TaskPrompt fills the task template. The replacer runs in one pass so a document
// that happens to contain "{query}" is not rewritten.
func TaskPrompt(documentContent, query string) string {
	r := strings.NewReplacer(
		"{document_content}", documentContent,
		"{query}", query,
	)
	return r.Replace(taskTemplate) + "\n\nThis is the expected criteria for your final answer: " + expectedOutput
}
