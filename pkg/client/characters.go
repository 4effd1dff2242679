package client

import (
	"context"
	"fmt"

	"github.com/Sternrassler/rickmorty-client/pkg/character"
)

// CharactersOperation is the operation name of CharactersQuery.
const CharactersOperation = "GetCharacters"

// CharactersQuery lists one page of characters for a status/species filter.
const CharactersQuery = `query GetCharacters($page: Int, $status: String, $species: String) {
  characters(page: $page, filter: { status: $status, species: $species }) {
    info {
      count
      pages
      next
    }
    results {
      id
      name
      status
      species
      gender
      origin {
        name
      }
    }
  }
}`

type charactersData struct {
	Characters *struct {
		Info struct {
			Count int  `json:"count"`
			Pages int  `json:"pages"`
			Next  *int `json:"next"`
		} `json:"info"`
		Results []struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Status  string `json:"status"`
			Species string `json:"species"`
			Gender  string `json:"gender"`
			Origin  *struct {
				Name string `json:"name"`
			} `json:"origin"`
		} `json:"results"`
	} `json:"characters"`
}

// CharactersVariables builds the query variables for a page and filter.
// Empty filter fields are left out so the API does not filter on them.
func CharactersVariables(page int, filter character.Filter) map[string]any {
	vars := map[string]any{"page": page}
	if filter.Status != character.StatusAll {
		vars["status"] = string(filter.Status)
	}
	if filter.Species != "" {
		vars["species"] = filter.Species
	}
	return vars
}

// FetchPage loads one page of characters. A filter that matches nothing
// yields an empty final page rather than an error.
func (c *Client) FetchPage(ctx context.Context, page int, filter character.Filter) (character.Page, error) {
	if page < 1 {
		return character.Page{}, fmt.Errorf("page must be >= 1 (got %d)", page)
	}

	var data charactersData
	err := c.Do(ctx, Request{
		Query:         CharactersQuery,
		OperationName: CharactersOperation,
		Variables:     CharactersVariables(page, filter.Normalize()),
	}, &data)
	if err != nil {
		if isNotFound(err) {
			c.logger.Debug().
				Int("page", page).
				Stringer("filter", filter).
				Msg("No characters match filter")
			return character.Page{}, nil
		}
		return character.Page{}, err
	}

	if data.Characters == nil {
		return character.Page{}, nil
	}

	out := character.Page{
		Records: make([]character.Record, 0, len(data.Characters.Results)),
		HasNext: data.Characters.Info.Next != nil,
		Count:   data.Characters.Info.Count,
		Pages:   data.Characters.Info.Pages,
	}
	for _, r := range data.Characters.Results {
		rec := character.Record{
			ID:      r.ID,
			Name:    r.Name,
			Status:  character.Status(r.Status),
			Species: r.Species,
			Gender:  r.Gender,
		}
		if r.Origin != nil {
			rec.OriginName = r.Origin.Name
		}
		out.Records = append(out.Records, rec)
	}

	return out, nil
}

// PurgeCharacters drops every cached characters page so the next fetches go
// to the API. It is a no-op when caching is disabled.
func (c *Client) PurgeCharacters(ctx context.Context) (int, error) {
	if c.cache == nil {
		return 0, nil
	}
	n, err := c.cache.Purge(ctx, CharactersOperation)
	if err != nil {
		return n, fmt.Errorf("purge characters cache: %w", err)
	}
	c.logger.Debug().Int("entries", n).Msg("Purged characters cache")
	return n, nil
}
