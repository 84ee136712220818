package marketplace

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"staybook/internal/domain"
)

// SearchProperties runs one page of the property search. q is passed through
// unchanged; callers own key normalization.
func (a *API) SearchProperties(ctx context.Context, q url.Values) (domain.SearchPage, error) {
	var env envelope[map[string]any]
	err := a.properties.do(ctx, op{
		method: http.MethodGet, path: "/properties/search", route: "GET /properties/search",
		query: q, out: &env,
	})
	if err != nil {
		return domain.SearchPage{}, err
	}
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	raw := env.toPage(page, size)
	return domain.SearchPage{Items: mapProperties(raw.Items), Total: raw.Total, HasMore: raw.HasMore, Page: raw.Page}, nil
}

func (a *API) GetProperty(ctx context.Context, id int64) (domain.Property, error) {
	var raw map[string]any
	err := a.properties.do(ctx, op{
		method: http.MethodGet, path: fmt.Sprintf("/properties/%d", id), route: "GET /properties/{id}",
		out: &raw,
	})
	if err != nil {
		return domain.Property{}, err
	}
	return mapProperty(raw), nil
}

func (a *API) CreateProperty(ctx context.Context, in domain.PropertyInput) (domain.Property, error) {
	var raw map[string]any
	err := a.properties.do(ctx, op{
		method: http.MethodPost, path: "/properties/", route: "POST /properties/",
		in: in, out: &raw,
	})
	if err != nil {
		return domain.Property{}, err
	}
	return mapProperty(raw), nil
}

func (a *API) UpdateProperty(ctx context.Context, id int64, in domain.PropertyInput) (domain.Property, error) {
	var raw map[string]any
	err := a.properties.do(ctx, op{
		method: http.MethodPut, path: fmt.Sprintf("/properties/%d", id), route: "PUT /properties/{id}",
		in: in, out: &raw,
	})
	if err != nil {
		return domain.Property{}, err
	}
	return mapProperty(raw), nil
}

func (a *API) DeleteProperty(ctx context.Context, id int64) error {
	return a.properties.do(ctx, op{
		method: http.MethodDelete, path: fmt.Sprintf("/properties/%d", id), route: "DELETE /properties/{id}",
	})
}

// UploadImage posts one image as multipart form data. The file is buffered
// so a replay after a refresh resends the same bytes.
func (a *API) UploadImage(ctx context.Context, name string, r io.Reader) (domain.Image, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", name)
	if err != nil {
		return domain.Image{}, err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return domain.Image{}, fmt.Errorf("read %s: %w", name, err)
	}
	if err := mw.Close(); err != nil {
		return domain.Image{}, err
	}

	var img domain.Image
	err = a.properties.do(ctx, op{
		method: http.MethodPost, path: "/properties/images/", route: "POST /properties/images/",
		raw: buf.Bytes(), ctype: mw.FormDataContentType(), out: &img,
	})
	return img, err
}

func (a *API) DeleteImage(ctx context.Context, id int64) error {
	return a.properties.do(ctx, op{
		method: http.MethodDelete, path: fmt.Sprintf("/properties/images/%d", id), route: "DELETE /properties/images/{id}",
	})
}

func (a *API) ListExperiences(ctx context.Context, page int) (domain.Page[domain.Experience], error) {
	var env envelope[domain.Experience]
	err := a.properties.do(ctx, op{
		method: http.MethodGet, path: "/experiences/", route: "GET /experiences/",
		query: pageQuery(page), out: &env,
	})
	if err != nil {
		return domain.Page[domain.Experience]{}, err
	}
	return env.toPage(page, 0), nil
}

func (a *API) GetExperience(ctx context.Context, id int64) (domain.Experience, error) {
	var e domain.Experience
	err := a.properties.do(ctx, op{
		method: http.MethodGet, path: fmt.Sprintf("/experiences/%d", id), route: "GET /experiences/{id}",
		out: &e,
	})
	return e, err
}
