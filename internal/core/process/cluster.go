package process

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/osamusic/med-regulatory/internal/models"
)

// ClusterSummary reports one clustering pass.
type ClusterSummary struct {
	Clustered int        `json:"clustered"`
	Clusters  [][]string `json:"clusters"`
}

// ClusterDocuments groups near-duplicate process documents with a
// single greedy pass over the vector index: index every unclustered
// document's original text, then for each document in creation order
// claim its unclaimed neighbors scoring at or above the threshold. A
// document belongs to at most one cluster; first seen wins, so later
// documents can land in a worse-fit cluster than a different ordering
// would give. That order dependency is accepted, and made deterministic
// by the creation-order sort.
func (p *Processor) ClusterDocuments(ctx context.Context) (ClusterSummary, error) {
	docs, err := p.store.ListUnclustered(ctx)
	if err != nil {
		return ClusterSummary{}, fmt.Errorf("list unclustered: %w", err)
	}
	if len(docs) == 0 {
		return ClusterSummary{Clusters: [][]string{}}, nil
	}

	byID := make(map[string]models.ProcessDocument, len(docs))
	for _, doc := range docs {
		byID[doc.ID] = doc
		meta := map[string]string{"id": doc.ID}
		if err := p.index.Insert(ctx, doc.OriginalText, meta); err != nil {
			return ClusterSummary{}, fmt.Errorf("index %s: %w", doc.ID, err)
		}
	}

	claimed := make(map[string]bool)
	var clusters [][]string

	for _, doc := range docs {
		if claimed[doc.ID] {
			continue
		}
		hits, err := p.index.Retrieve(ctx, doc.OriginalText, 5)
		if err != nil {
			return ClusterSummary{}, fmt.Errorf("retrieve neighbors for %s: %w", doc.ID, err)
		}

		var members []string
		for _, hit := range hits {
			id := hit.Meta["id"]
			if id == "" || hit.Score < p.threshold || claimed[id] {
				continue
			}
			if _, ok := byID[id]; !ok {
				continue // stale index entry from an earlier pass
			}
			members = append(members, id)
			claimed[id] = true
		}
		if len(members) > 0 {
			clusters = append(clusters, members)
		}
	}

	for _, members := range clusters {
		rep := byID[members[0]]
		cluster := &models.ProcessCluster{
			ID:      uuid.NewString(),
			RepText: rep.ProcessedText,
		}
		if err := p.store.CreateCluster(ctx, cluster); err != nil {
			return ClusterSummary{}, fmt.Errorf("create cluster: %w", err)
		}
		for _, id := range members {
			if err := p.store.AssignCluster(ctx, id, cluster.ID); err != nil {
				return ClusterSummary{}, fmt.Errorf("assign %s to cluster %s: %w", id, cluster.ID, err)
			}
		}
	}

	p.log.Infow("clustering completed", "clusters", len(clusters))
	if clusters == nil {
		clusters = [][]string{}
	}
	return ClusterSummary{Clustered: len(clusters), Clusters: clusters}, nil
}
