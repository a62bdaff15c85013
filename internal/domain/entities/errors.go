package entities

import "errors"

// Domain errors. Callers wrap them with context and test with errors.Is.
var (
	// ErrInvalidConfiguration indicates parameters that cannot work,
	// e.g. a chunk overlap that is not smaller than the chunk size.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidInput indicates malformed input such as an empty question.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCorpusEmpty indicates no documents were found. Not fatal.
	ErrCorpusEmpty = errors.New("corpus is empty")

	// ErrEmbeddingFailure indicates the embedding capability failed.
	ErrEmbeddingFailure = errors.New("embedding failed")

	// ErrGenerationFailure indicates the language model call failed.
	ErrGenerationFailure = errors.New("generation failed")

	// ErrIndexEmpty indicates a query against an index with no chunks.
	// Treated as "no relevant information", not as a hard failure.
	ErrIndexEmpty = errors.New("index is empty")

	// ErrDimensionMismatch indicates an embedding whose length differs
	// from the dimension already stored in the collection.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// NoInformationAnswer is returned when the retrieved context cannot answer a question.
const NoInformationAnswer = "I don't have enough information to answer that."
