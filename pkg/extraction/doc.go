// Package extraction turns free text into candidate concepts and relationships.
//
// An Extractor is the collaborator that proposes graph content. The LLM
// implementation prompts a chat model and parses its JSON answer, repairing
// the common formatting mistakes models make. Responses that still cannot be
// read are reported as types.ErrMalformedExtraction.
package extraction
