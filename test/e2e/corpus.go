// Package e2e provides end-to-end tests driven by a generated corpus.
package e2e

import "fmt"

// CorpusDocument is one document in the end-to-end corpus.
type CorpusDocument struct {
	ID      string
	Title   string
	Content string
}

// QueryTestCase defines a query and the document ID(s) of which at least one
// must appear among the returned candidates.
type QueryTestCase struct {
	Query          string
	ExpectedDocIDs []string
	Description    string
}

// Corpus holds documents and query test cases.
type Corpus struct {
	Documents    []CorpusDocument
	TestCases    []QueryTestCase
	TotalDocs    int
	TotalQueries int
}

// BuildCorpus returns a corpus of documents with varied content. Each
// document carries a unique signature phrase so queries can assert the
// correct document is retrieved.
func BuildCorpus() *Corpus {
	docs := buildDocuments(40)
	cases := buildQueryTestCases(docs)
	return &Corpus{
		Documents:    docs,
		TestCases:    cases,
		TotalDocs:    len(docs),
		TotalQueries: len(cases),
	}
}

var corpusTopics = []struct {
	title   string
	phrase  string
	content string
}{
	{"Python Guide", "Python programming language", "Python is a high-level programming language. The Python programming language is used for web development and data science."},
	{"Kubernetes Docs", "Kubernetes container orchestration", "Kubernetes is an open-source container orchestration platform. Kubernetes container orchestration automates deployment and scaling."},
	{"Go Language", "golang goroutine concurrency", "Go is a statically typed language. Golang goroutine concurrency is achieved with goroutines and channels."},
	{"PostgreSQL Manual", "PostgreSQL relational database", "PostgreSQL is an advanced relational database. The PostgreSQL relational database supports JSON and full-text search."},
	{"Docker Handbook", "Docker container images", "Docker enables building and shipping applications. Docker container images are portable across environments."},
	{"Neural Networks", "neural network backpropagation", "Neural networks are inspired by the brain. Neural network backpropagation adjusts weights from errors."},
	{"Redis Cache", "Redis in-memory cache", "Redis is an in-memory data store. The Redis in-memory cache is used for sessions and caching."},
	{"Terraform IaC", "Terraform infrastructure declarative", "Terraform manages cloud infrastructure. Terraform infrastructure declarative configuration describes the target state."},
	{"gRPC Overview", "gRPC protobuf streaming", "gRPC is a high-performance RPC framework. gRPC protobuf streaming uses HTTP/2 framing."},
	{"Kafka Streams", "Kafka event streaming", "Apache Kafka is a distributed event platform. Kafka event streaming handles high throughput."},
}

func buildDocuments(n int) []CorpusDocument {
	docs := make([]CorpusDocument, 0, n)
	for i := 0; i < n; i++ {
		topic := corpusTopics[i%len(corpusTopics)]
		round := i / len(corpusTopics)
		doc := CorpusDocument{
			ID:    fmt.Sprintf("corpus-doc-%03d", i),
			Title: fmt.Sprintf("%s %d", topic.title, round),
		}
		if round == 0 {
			// First round carries the signature phrase; later rounds are
			// filler that shares the topic vocabulary without the phrase.
			doc.Content = topic.content
		} else {
			doc.Content = fmt.Sprintf("Notes on %s, revision %d. General background without specifics.", topic.title, round)
		}
		docs = append(docs, doc)
	}
	return docs
}

func buildQueryTestCases(docs []CorpusDocument) []QueryTestCase {
	var cases []QueryTestCase
	for i, topic := range corpusTopics {
		if i >= len(docs) {
			break
		}
		cases = append(cases, QueryTestCase{
			Query:          topic.phrase,
			ExpectedDocIDs: []string{docs[i].ID},
			Description:    topic.title,
		})
	}
	return cases
}
