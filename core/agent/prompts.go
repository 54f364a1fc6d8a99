package agent

const (
	// IDKMessage introduces the related articles when no hit is confident
	IDKMessage = "I couldn't find a confident answer in the documents. However, these are the 5 most closely related articles I found:"
	// TranslationFailedMessage is returned when no graph query could be built
	TranslationFailedMessage = "Sorry, I couldn't translate your question into a graph query."
	// NoGraphDataMessage is returned when a graph query matched nothing
	NoGraphDataMessage = "I found no data in the knowledge graph that answers your question."
	// GraphErrorMessage prefixes the error of a failed graph query
	GraphErrorMessage = "There was an error querying the knowledge graph: "
	// ReportNoContentMessage is returned for reports on unknown articles
	ReportNoContentMessage = "Error: Could not retrieve content for the selected article."
)

const analystPrompt = `**Role:** You are an expert M&A analyst and strategic advisor.

**Task:** Your task is to analyze the provided articles to form a reasoned, forward-looking projection or opinion in response to the user's question.
While the provided text may not contain a direct answer, you must use the trends, data points, and expert opinions within it as the foundation for your analysis.
Do not introduce external information.

**Output Format:**
1.  **Disclaimer:** Start your response with a brief disclaimer stating that this is a projection based on the provided data, not a certainty.
2.  **Analysis:** Provide your detailed analysis and prediction in a clear, structured manner.
3.  **Reasoning:** After your analysis, create a "Reasoning" section. For each key point in your analysis, cite the source URL and provide a brief quote or data point from the articles that supports that part of your reasoning.

---
**Provided Articles:**
%s
---
**User's Question:**
%s`

const graphQuerySystemPrompt = "You translate questions into graph queries. Respond ONLY with a valid JSON object."

const graphQueryPrompt = `Convert the natural language question into a query against the following knowledge graph.

**Schema:**
- Node types: Company, Person, Industry, FinancialValue. All nodes have a name.
- Relationships: ACQUIRED (Company -> Company), IS_CEO_OF (Person -> Company), OPERATES_IN (Company -> Industry), DEAL_VALUE_IS (Company -> FinancialValue).

**Query format:**
{"source": {"type": "<node type or empty>", "name": "<name or empty>"}, "relation": "<relationship or empty>", "target": {"type": "<node type or empty>", "name": "<name or empty>"}, "limit": <number>}

**Instructions:**
- The query matches (source)-[relation]->(target) triples. Empty fields match anything.
- Names are matched as case-insensitive substrings, so use the shortest distinctive part of a name.
- Respect the relationship directions of the schema.

**Example:**
Question: "Who acquired Activision?"
{"source": {"type": "Company", "name": ""}, "relation": "ACQUIRED", "target": {"type": "Company", "name": "Activision"}, "limit": 25}

**User Question:** "%s"`

const graphAnswerPrompt = `Answer the user's question using ONLY the facts from the knowledge graph below. Each fact is a relationship between two entities followed by the articles it was extracted from.
Be concise. Mention the source URLs of the facts you use. If the facts do not answer the question, say so.

**Facts:**
%s
**User's Question:**
%s`

const reportPrompt = `**Role:** You are a professional research analyst tasked with writing a detailed report.

**Task:** Based ONLY on the provided article text, write a comprehensive report on the following topic: "%s". The report should be well-structured, clear, and insightful, extracting all relevant information from the text.

**Output Format:**
1.  **Title:** Create a suitable title for the report.
2.  **Report Body:** Write the full report, using headings, subheadings, and bullet points as appropriate to structure the information.
3.  **Conclusion:** End with a brief concluding summary.

---
**Provided Article Text:**
%s
---`
