package service

import "fmt"

// Prompt templates for summarization and RAG. Kept in one place so wording
// changes don't require touching pipeline code.

const mapPromptTemplate = `Write a concise summary of the following:
"%s"
CONCISE SUMMARY:`

const reducePromptTemplate = `Write a final consolidated summary of the following summaries:
%s
FINAL SUMMARY:`

const simpleSummaryPromptTemplate = `You are a helpful assistant that summarizes emails concisely.

Please summarize the following email:

%s`

const structuredSummaryPromptTemplate = `You are a helpful assistant that analyzes emails and extracts key information.

Please analyze the following email and provide a structured summary:

%s`

const ragMapPromptTemplate = `Use the following portion of a long document to see if any of the text is relevant to answer the question.
Return any relevant text verbatim. Quote the exact relevant portions.

Question: %s

Document excerpt:
---
%s
---

Relevant text:`

const ragReducePromptTemplate = `You are synthesizing information from multiple email excerpts to answer a user's question.

Question: %s

Here are the relevant excerpts from the user's emails:
---
%s
---

Based on these excerpts, provide a final, consolidated answer. Follow these rules:
1. Base your answer only on the provided excerpts
2. If the excerpts don't contain enough information, state that clearly
3. Be concise and directly answer the question
4. Quote relevant snippets where appropriate

Answer:`

const bulkSummaryPromptTemplate = `Please provide a comprehensive digest summary of the following emails.
Identify common themes, important action items, and key decisions across all messages:

%s

DIGEST SUMMARY:`

func mapPrompt(text string) string        { return fmt.Sprintf(mapPromptTemplate, text) }
func reducePrompt(text string) string     { return fmt.Sprintf(reducePromptTemplate, text) }
func simpleSummaryPrompt(t string) string { return fmt.Sprintf(simpleSummaryPromptTemplate, t) }
func structuredSummaryPrompt(t string) string {
	return fmt.Sprintf(structuredSummaryPromptTemplate, t)
}
func ragMapPrompt(question, context string) string {
	return fmt.Sprintf(ragMapPromptTemplate, question, context)
}
func ragReducePrompt(question, summaries string) string {
	return fmt.Sprintf(ragReducePromptTemplate, question, summaries)
}
func bulkSummaryPrompt(emails string) string { return fmt.Sprintf(bulkSummaryPromptTemplate, emails) }
