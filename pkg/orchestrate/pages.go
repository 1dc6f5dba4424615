package orchestrate

import (
	"fmt"
	"strings"

	"forum-scraper/pkg/models"
	"forum-scraper/pkg/utils"
)

// BuildPageURL returns the listing URL for a 1-based page number.
// Page 1 carries no offset; page n adds start=(n-1)*pageSize.
func BuildPageURL(baseURL, forumPath string, page, pageSize int) string {
	pageURL := strings.TrimRight(baseURL, "/") + forumPath
	if page <= 1 {
		return pageURL
	}
	sep := "?"
	if strings.Contains(forumPath, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%sstart=%d", pageURL, sep, (page-1)*pageSize)
}

// PageURLs returns the listing URLs for every page in r, in page order
func PageURLs(baseURL, forumPath string, r models.PageRange, pageSize int) ([]string, error) {
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrConfigValidation, err)
	}
	if pageSize < 1 {
		return nil, utils.WrapErrorf(utils.ErrConfigValidation, "page size must be >= 1, got %d", pageSize)
	}
	urls := make([]string, 0, r.Len())
	for page := r.From; page <= r.To; page++ {
		urls = append(urls, BuildPageURL(baseURL, forumPath, page, pageSize))
	}
	return urls, nil
}
