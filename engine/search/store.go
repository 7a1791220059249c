// Package search implements free-text vehicle search: a qdrant-backed
// semantic index over vehicle descriptions, with a lexical scan fallback so
// the search box keeps working when the vector stack is down.
package search

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Hit is one vector search result mapped back to a catalog vehicle id.
type Hit struct {
	VehicleID string  `json:"vehicle_id"`
	Score     float32 `json:"score"`
}

// VectorRecord is one point to index: the embedding of a vehicle's
// searchable text plus the id needed to resolve it back.
type VectorRecord struct {
	ID        string // point uuid
	VehicleID string
	Embedding []float32
}

// VectorStore owns all qdrant operations for the search index.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// NewVectorStore connects to qdrant at the given gRPC address.
func NewVectorStore(addr, collection string) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("search: dial qdrant %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (v *VectorStore) Close() error { return v.conn.Close() }

// EnsureCollection creates the collection if it does not exist.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("search: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("search: create collection %s: %w", v.collection, err)
	}
	return nil
}

// Upsert indexes embedding records.
func (v *VectorStore) Upsert(ctx context.Context, records []VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: r.Embedding},
				},
			},
			Payload: map[string]*pb.Value{
				"vehicle_id": {Kind: &pb.Value_StringValue{StringValue: r.VehicleID}},
			},
		}
	}

	wait := true
	_, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("search: upsert %d points: %w", len(records), err)
	}
	return nil
}

// Search runs a k-NN query and returns vehicle-id hits.
func (v *VectorStore) Search(ctx context.Context, embedding []float32, topK int) ([]Hit, error) {
	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("search: query: %w", err)
	}

	hits := make([]Hit, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		id := r.GetPayload()["vehicle_id"].GetStringValue()
		if id == "" {
			continue
		}
		hits = append(hits, Hit{VehicleID: id, Score: r.GetScore()})
	}
	return hits, nil
}
