package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	berrors "github.com/felixgeelhaar/backlog/internal/errors"
)

// User is the authenticated account.
type User struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress"`
}

// Project is the subset of project metadata used as generation context.
type Project struct {
	ID             string `json:"id"`
	Key            string `json:"key"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	ProjectTypeKey string `json:"projectTypeKey"`
	Lead           struct {
		DisplayName string `json:"displayName"`
	} `json:"lead"`
}

// Issue is a search hit.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// IssueFields are the fields requested by SearchFields.
type IssueFields struct {
	Summary string `json:"summary"`
	// Description is an ADF document on API v3; see projectctx.ADFText.
	Description json.RawMessage `json:"description"`
	Labels      []string        `json:"labels"`
	Created     string          `json:"created"`
	IssueType   struct {
		Name string `json:"name"`
	} `json:"issuetype"`
	Priority *struct {
		Name string `json:"name"`
	} `json:"priority"`
}

// SearchFields is the field list requested by Search.
var SearchFields = []string{"summary", "description", "labels", "created", "issuetype", "priority"}

// searchPageSize is the page size requested from the search endpoint.
const searchPageSize = 50

func decode[T any](raw json.RawMessage, what string) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, berrors.Wrap(berrors.ErrCodeTrackerDecode, "decode "+what, err)
	}
	return v, nil
}

// Myself returns the account the credentials belong to.
func (c *Client) Myself(ctx context.Context) (User, error) {
	raw, err := c.Get(ctx, "/rest/api/3/myself", nil)
	if err != nil {
		return User{}, err
	}
	u, err := decode[User](raw, "current user")
	if err == nil && u.AccountID == "" {
		err = berrors.New(berrors.ErrCodeTrackerDecode, "current user has no accountId")
	}
	return u, err
}

// Project returns a project's metadata.
func (c *Client) Project(ctx context.Context, key string) (Project, error) {
	raw, err := c.Get(ctx, "/rest/api/3/project/"+url.PathEscape(strings.ToUpper(key)), nil)
	if err != nil {
		return Project{}, err
	}
	return decode[Project](raw, "project")
}

type searchPage struct {
	Issues        []Issue `json:"issues"`
	NextPageToken string  `json:"nextPageToken"`
	IsLast        *bool   `json:"isLast"`
}

// Search runs a JQL query and returns up to limit issues, following
// nextPageToken pagination. A limit of zero or less fetches every page.
func (c *Client) Search(ctx context.Context, jql string, limit int) ([]Issue, error) {
	var out []Issue
	token := ""
	for {
		pageSize := searchPageSize
		if limit > 0 && limit-len(out) < pageSize {
			pageSize = limit - len(out)
		}
		q := url.Values{}
		q.Set("jql", jql)
		q.Set("fields", strings.Join(SearchFields, ","))
		q.Set("maxResults", strconv.Itoa(pageSize))
		if token != "" {
			q.Set("nextPageToken", token)
		}

		raw, err := c.Get(ctx, "/rest/api/3/search/jql", q)
		if err != nil {
			return out, err
		}
		page, err := decode[searchPage](raw, "search page")
		if err != nil {
			return out, err
		}
		out = append(out, page.Issues...)

		last := page.NextPageToken == "" || (page.IsLast != nil && *page.IsLast) || len(page.Issues) == 0
		if last || (limit > 0 && len(out) >= limit) {
			break
		}
		token = page.NextPageToken
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// QuoteJQL quotes a value for use in a JQL string literal.
func QuoteJQL(s string) string {
	return strconv.Quote(s)
}

// ProjectJQL builds "project = KEY [AND extra] ORDER BY created DESC".
func ProjectJQL(projectKey, extra string) string {
	jql := fmt.Sprintf("project = %s", QuoteJQL(strings.ToUpper(projectKey)))
	if extra != "" {
		jql += " AND " + extra
	}
	return jql + " ORDER BY created DESC"
}
