package semantic

import (
	"context"
	"errors"
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

// --- mocks ---

type mockPoints struct {
	pb.PointsClient
	upsertReq  *pb.UpsertPoints
	upsertErr  error
	searchResp *pb.SearchResponse
	searchErr  error
}

func (m *mockPoints) Upsert(_ context.Context, req *pb.UpsertPoints, _ ...grpc.CallOption) (*pb.PointsOperationResponse, error) {
	m.upsertReq = req
	return &pb.PointsOperationResponse{}, m.upsertErr
}

func (m *mockPoints) Search(_ context.Context, _ *pb.SearchPoints, _ ...grpc.CallOption) (*pb.SearchResponse, error) {
	return m.searchResp, m.searchErr
}

type mockCollections struct {
	pb.CollectionsClient
	listResp  *pb.ListCollectionsResponse
	listErr   error
	created   *pb.CreateCollection
	createErr error
}

func (m *mockCollections) List(_ context.Context, _ *pb.ListCollectionsRequest, _ ...grpc.CallOption) (*pb.ListCollectionsResponse, error) {
	return m.listResp, m.listErr
}

func (m *mockCollections) Create(_ context.Context, req *pb.CreateCollection, _ ...grpc.CallOption) (*pb.CollectionOperationResponse, error) {
	m.created = req
	return &pb.CollectionOperationResponse{Result: true}, m.createErr
}

// --- tests ---

func TestUpsertEmptyIsNoop(t *testing.T) {
	points := &mockPoints{}
	vs := NewWithClients(points, &mockCollections{}, "postings")
	if err := vs.Upsert(context.Background(), nil); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if points.upsertReq != nil {
		t.Fatal("empty upsert should not call qdrant")
	}
}

func TestUpsertBuildsPoints(t *testing.T) {
	points := &mockPoints{}
	vs := NewWithClients(points, &mockCollections{}, "postings")

	records := []VectorRecord{
		{ID: "11111111-1111-1111-1111-111111111111", Hash: "abc", Embedding: []float32{1, 2}, Text: "fact one"},
		{ID: "22222222-2222-2222-2222-222222222222", Hash: "def", Embedding: []float32{3, 4}, Text: "fact two"},
	}
	if err := vs.Upsert(context.Background(), records); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	req := points.upsertReq
	if req.GetCollectionName() != "postings" || len(req.GetPoints()) != 2 {
		t.Fatalf("unexpected request %+v", req)
	}
	p := req.GetPoints()[0]
	if p.GetId().GetUuid() != records[0].ID {
		t.Fatalf("id %q", p.GetId().GetUuid())
	}
	if p.GetPayload()[payloadText].GetStringValue() != "fact one" {
		t.Fatal("text payload missing")
	}
	if p.GetPayload()[payloadHash].GetStringValue() != "abc" {
		t.Fatal("hash payload missing")
	}
}

func TestUpsertError(t *testing.T) {
	points := &mockPoints{upsertErr: errors.New("rpc fail")}
	vs := NewWithClients(points, &mockCollections{}, "postings")
	err := vs.Upsert(context.Background(), []VectorRecord{{ID: "x", Embedding: []float32{1}}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestSearchMapsResults(t *testing.T) {
	points := &mockPoints{searchResp: &pb.SearchResponse{
		Result: []*pb.ScoredPoint{
			{
				Id:    &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: "a"}},
				Score: 0.91,
				Payload: map[string]*pb.Value{
					payloadText: {Kind: &pb.Value_StringValue{StringValue: "Foo offered an internship"}},
					payloadHash: {Kind: &pb.Value_StringValue{StringValue: "deadbeef"}},
				},
			},
		},
	}}
	vs := NewWithClients(points, &mockCollections{}, "postings")

	results, err := vs.Search(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	r := results[0]
	if r.ID != "a" || r.Score != 0.91 || r.Text != "Foo offered an internship" || r.Hash != "deadbeef" {
		t.Fatalf("result %+v", r)
	}
}

func TestSearchError(t *testing.T) {
	points := &mockPoints{searchErr: errors.New("unavailable")}
	vs := NewWithClients(points, &mockCollections{}, "postings")
	if _, err := vs.Search(context.Background(), []float32{1}, 3); err == nil {
		t.Fatal("expected error")
	}
}

func TestEnsureCollectionExisting(t *testing.T) {
	cols := &mockCollections{
		listResp: &pb.ListCollectionsResponse{
			Collections: []*pb.CollectionDescription{{Name: "postings"}},
		},
	}
	vs := NewWithClients(&mockPoints{}, cols, "postings")
	if err := vs.EnsureCollection(context.Background(), 384); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if cols.created != nil {
		t.Fatal("existing collection should not be recreated")
	}
}

func TestEnsureCollectionCreates(t *testing.T) {
	cols := &mockCollections{listResp: &pb.ListCollectionsResponse{}}
	vs := NewWithClients(&mockPoints{}, cols, "postings")
	if err := vs.EnsureCollection(context.Background(), 384); err != nil {
		t.Fatalf("EnsureCollection: %v", err)
	}
	if cols.created == nil {
		t.Fatal("collection should be created")
	}
	params := cols.created.GetVectorsConfig().GetParams()
	if params.GetSize() != 384 || params.GetDistance() != pb.Distance_Cosine {
		t.Fatalf("params %+v", params)
	}
}

func TestEnsureCollectionListError(t *testing.T) {
	cols := &mockCollections{listErr: errors.New("down")}
	vs := NewWithClients(&mockPoints{}, cols, "postings")
	if err := vs.EnsureCollection(context.Background(), 384); err == nil {
		t.Fatal("expected error")
	}
}

func TestContextText(t *testing.T) {
	got := ContextText([]SearchResult{{Text: "a"}, {Text: "b"}, {Text: "c"}})
	if got != "a\nb\nc" {
		t.Fatalf("got %q", got)
	}
	if ContextText(nil) != "" {
		t.Fatal("empty results should yield empty context")
	}
}

func TestCloseWithoutConn(t *testing.T) {
	vs := NewWithClients(&mockPoints{}, &mockCollections{}, "postings")
	if err := vs.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
