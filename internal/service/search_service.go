package service

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"github.com/vesselapp/vessel/internal/model"
)

type SearchService interface {
	IndexUser(user *model.User) error
	DeleteUser(id string) error
	IndexVideo(video *model.Video) error
	DeleteVideo(id string) error
	SearchUsers(query string, limit int) ([]uuid.UUID, error)
	SearchVideos(query string, limit int) ([]uuid.UUID, error)
}

type searchService struct {
	client meilisearch.ServiceManager
}

func NewSearchService(client meilisearch.ServiceManager) SearchService {
	s := &searchService{client: client}
	s.initIndexes()
	return s
}

func (s *searchService) initIndexes() {
	sortable := []string{"created_at"}
	if _, err := s.client.Index("users").UpdateSortableAttributes(&sortable); err != nil {
		log.Printf("Failed to update users sortable attributes: %v", err)
	}
	if _, err := s.client.Index("videos").UpdateSortableAttributes(&sortable); err != nil {
		log.Printf("Failed to update videos sortable attributes: %v", err)
	}
}

type meiliUserDoc struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	CreatedAt   int64  `json:"created_at"`
}

type meiliVideoDoc struct {
	ID            string `json:"id"`
	Caption       string `json:"caption"`
	AuthorHandle  string `json:"author_handle"`
	AuthorDisplay string `json:"author_display_name"`
	CreatedAt     int64  `json:"created_at"`
}

func (s *searchService) IndexUser(user *model.User) error {
	doc := meiliUserDoc{
		ID:          user.ID.String(),
		Handle:      user.Handle,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt.Unix(),
	}
	if user.Profile != nil && user.Profile.Bio != nil {
		doc.Bio = *user.Profile.Bio
	}

	_, err := s.client.Index("users").AddDocuments([]meiliUserDoc{doc}, strPtr("id"))
	return err
}

func (s *searchService) DeleteUser(id string) error {
	_, err := s.client.Index("users").DeleteDocument(id)
	return err
}

func (s *searchService) IndexVideo(video *model.Video) error {
	doc := meiliVideoDoc{
		ID:            video.ID.String(),
		Caption:       video.Caption,
		AuthorHandle:  video.User.Handle,
		AuthorDisplay: video.User.DisplayName,
		CreatedAt:     video.CreatedAt.Unix(),
	}

	_, err := s.client.Index("videos").AddDocuments([]meiliVideoDoc{doc}, strPtr("id"))
	return err
}

func (s *searchService) DeleteVideo(id string) error {
	_, err := s.client.Index("videos").DeleteDocument(id)
	return err
}

func (s *searchService) SearchUsers(query string, limit int) ([]uuid.UUID, error) {
	resp, err := s.client.Index("users").Search(query, &meilisearch.SearchRequest{
		Limit: int64(limit),
	})
	if err != nil {
		return nil, err
	}
	return hitIDs(resp)
}

func (s *searchService) SearchVideos(query string, limit int) ([]uuid.UUID, error) {
	resp, err := s.client.Index("videos").Search(query, &meilisearch.SearchRequest{
		Limit: int64(limit),
	})
	if err != nil {
		return nil, err
	}
	return hitIDs(resp)
}

// hitIDs extracts document ids from search hits, preserving relevance order.
func hitIDs(resp *meilisearch.SearchResponse) ([]uuid.UUID, error) {
	raw, err := json.Marshal(resp.Hits)
	if err != nil {
		return nil, err
	}

	var docs []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(docs))
	for _, doc := range docs {
		id, err := uuid.Parse(doc.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func strPtr(s string) *string {
	return &s
}
