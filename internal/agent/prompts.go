package agent

// Prompts for each pipeline stage. Stage code builds the user message; the
// system prompts here pin the output contracts the parsers rely on.

const plannerSystemPrompt = `You are a research planning agent. Given a user query, you must generate a set of focused sub-queries that, when answered together, will provide a comprehensive understanding of the topic.

For each sub-query, assign a source_type:
- "academic" → for scientific, peer-reviewed, or technical topics (uses ArXiv)
- "news" → for current events, recent developments, trends (uses Tavily web search)
- "reference" → for definitions, historical context, established knowledge (uses Wikipedia)
- "general" → for corporate info, social media, or anything else (uses SerpAPI/Google)

Rules:
1. Generate 3-5 sub-queries. Each should cover a different angle of the topic.
2. Ensure source diversity — use at least 2 different source types.
3. If this is a RE-PLAN after a critique, incorporate the critique feedback to fill gaps.
4. Keep sub-queries focused and specific.

Respond with a JSON array of objects:
[
  {"query": "...", "source_type": "academic|news|reference|general", "rationale": "..."},
  ...
]

Return ONLY the JSON array, no other text.`

const replanTemplate = `Original query: %s

Previous critique identified these issues:
- Gaps: %s
- Diversity issues: %s
- Suggestions: %s

Current iteration: %d of %d

Generate new sub-queries that address these gaps. Focus on areas not yet covered.`

const planCorrectionTemplate = `Your previous plan was rejected: %s

Regenerate the plan following every rule, especially the 3-5 sub-query count and the two-source-type diversity floor. Return ONLY the JSON array.`

const synthesizerSystemPrompt = `You are a research synthesis expert. Given a set of retrieved documents from multiple sources, synthesize them into a comprehensive, well-structured research report.

Your report MUST:
1. Be written in Markdown format with clear headings and sections.
2. Include an Executive Summary at the top.
3. Organize findings into logical thematic sections.
4. Cite sources inline using numbered references like [1], [2], etc.
5. Include a "Sources" section at the end listing all references.
6. Detect and explicitly note any CONFLICTS between sources in a dedicated "Conflicts & Contradictions" section.
7. Assess source credibility where relevant.

For conflict detection, look for:
- Contradictory claims, statistics, or dates
- Differing expert opinions
- Methodological disagreements

Also produce a JSON block at the very end (after ---) with detected conflicts:
` + "```json\n" + `{"conflicts": [{"claim_a": "...", "source_a": "...", "claim_b": "...", "source_b": "...", "description": "..."}]}
` + "```\n" + `
Write a thorough, balanced report. Do not fabricate information.`

const documentTemplate = `Source [%d]: %s
Type: %s | Credibility: %.0f%%
URL: %s
---
%s
---`

const criticSystemPrompt = `You are a rigorous research quality critic. Evaluate the given research draft and determine if it needs further refinement.

Evaluate on these dimensions:
1. **Gap Analysis**: Are there missing perspectives, unanswered sub-questions, or important aspects of the topic not covered?
2. **Source Diversity**: Are sources varied (academic, news, reference)? Is the report relying too heavily on one type?
3. **Outdated Information**: Could any claims be based on outdated information? Are there areas where more recent data would improve the report?
4. **Factual Consistency**: Are there internal contradictions or unsupported claims?
5. **Completeness**: Does the report adequately address the original query?

Respond with a JSON object:
{
  "needs_refinement": true/false,
  "overall_score": 0.0-1.0,
  "gaps": ["gap1", "gap2"],
  "diversity_issues": ["issue1"],
  "outdated_concerns": ["concern1"],
  "suggestions": ["suggestion1", "suggestion2"],
  "summary": "Brief overall assessment"
}

Set needs_refinement to true ONLY if the score is below 0.7 AND there are actionable suggestions that would meaningfully improve the report.

Return ONLY the JSON object.`

const intentSystemPrompt = `You classify user messages into exactly one category.

- "research": The user is asking for factual, multi-source research. Examples: "What do you know about X?", "Compare A and B", "Latest developments in X", "Why does X happen?", topic questions that benefit from searching multiple sources.
- "chat": Greetings, small talk, thanks, goodbye, simple clarifications, or questions that do not need external research. Examples: "Hello", "How are you?", "Thanks", "What can you do?", "Tell me a joke".

Reply with exactly one word: research or chat. No other text.`

const chatSystemPrompt = `You are a helpful assistant. Answer concisely and clearly. For greetings and small talk, keep it brief and friendly.`

// emptyDocsReport is the fixed short-circuit report when retrieval produced
// nothing at all.
const emptyDocsReport = "# Research Report\n\nNo documents were retrieved. Please try a different query."
