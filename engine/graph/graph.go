// Package graph mirrors parsed postings into a Neo4j catalog of
// (:Company)-[:OFFERED]->(:Posting) nodes. The catalog is a best-effort
// secondary store: the vector index never waits on it.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/ryanDing26/career-gpt/engine/domain"
)

// result is the minimal interface needed from a neo4j result.
type result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
}

// runner is the minimal interface needed from a neo4j session.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (result, error)
	Close(ctx context.Context) error
}

// Store provides catalog operations on top of Neo4j.
type Store struct {
	driver     neo4j.DriverWithContext
	newSession func(ctx context.Context) runner // for testing
}

// New creates a Store over a Neo4j driver.
func New(driver neo4j.DriverWithContext) *Store {
	return &Store{driver: driver}
}

// sessionAdapter adapts neo4j.SessionWithContext to the runner interface.
type sessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *sessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *sessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

func (s *Store) session(ctx context.Context) runner {
	if s.newSession != nil {
		return s.newSession(ctx)
	}
	return &sessionAdapter{sess: s.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

// SavePosting upserts the company node and its posting. MERGE keys on all
// posting fields, so re-saving an unchanged posting is a no-op.
func (s *Store) SavePosting(ctx context.Context, p domain.Posting) error {
	sess := s.session(ctx)
	defer sess.Close(ctx)

	cypher := `MERGE (c:Company {name: $company})
		MERGE (c)-[:OFFERED]->(:Posting {title: $title, location: $location, posted_date: $posted})`
	_, err := sess.Run(ctx, cypher, map[string]any{
		"company":  p.Company,
		"title":    p.Title,
		"location": p.Location,
		"posted":   p.PostedDate,
	})
	if err != nil {
		return fmt.Errorf("graph: save posting for %s: %w", p.Company, err)
	}
	return nil
}

// PostingsByCompany returns all catalogued postings for a company name.
func (s *Store) PostingsByCompany(ctx context.Context, company string) ([]domain.Posting, error) {
	sess := s.session(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (c:Company {name: $company})-[:OFFERED]->(p:Posting)
		RETURN p.title AS title, p.location AS location, p.posted_date AS posted
		ORDER BY posted`
	res, err := sess.Run(ctx, cypher, map[string]any{"company": company})
	if err != nil {
		return nil, fmt.Errorf("graph: postings by company %s: %w", company, err)
	}

	var postings []domain.Posting
	for res.Next(ctx) {
		rec := res.Record()
		p := domain.Posting{Company: company}
		if v, ok := rec.Get("title"); ok {
			p.Title, _ = v.(string)
		}
		if v, ok := rec.Get("location"); ok {
			p.Location, _ = v.(string)
		}
		if v, ok := rec.Get("posted"); ok {
			p.PostedDate, _ = v.(string)
		}
		postings = append(postings, p)
	}
	return postings, nil
}

// CompanyCounts returns posting counts per company, most postings first.
func (s *Store) CompanyCounts(ctx context.Context) (map[string]int64, error) {
	sess := s.session(ctx)
	defer sess.Close(ctx)

	cypher := `MATCH (c:Company)-[:OFFERED]->(p:Posting)
		RETURN c.name AS name, count(p) AS postings`
	res, err := sess.Run(ctx, cypher, nil)
	if err != nil {
		return nil, fmt.Errorf("graph: company counts: %w", err)
	}

	counts := make(map[string]int64)
	for res.Next(ctx) {
		rec := res.Record()
		name, _ := rec.Get("name")
		n, _ := rec.Get("postings")
		if s, ok := name.(string); ok {
			if c, ok := n.(int64); ok {
				counts[s] = c
			}
		}
	}
	return counts, nil
}
