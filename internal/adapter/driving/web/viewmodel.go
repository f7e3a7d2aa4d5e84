package web

import (
	"fmt"
	"net/url"

	vm "github.com/ericfisherdev/timeline/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/timeline/internal/application"
	"github.com/ericfisherdev/timeline/internal/domain/model"
)

const loadErrorMessage = "Could not load %s right now."

// toTimelineViewModel converts a loaded timeline into its view model. A
// collection that failed to load renders as an error panel instead of a list.
func toTimelineViewModel(tl application.Timeline) vm.TimelineViewModel {
	out := vm.TimelineViewModel{
		Viewer:  tl.Viewer,
		Stories: make([]vm.StoryCardViewModel, 0, len(tl.Stories)),
		Posts:   make([]vm.PostCardViewModel, 0, len(tl.Posts)),
	}

	if tl.StoriesErr != nil {
		out.StoriesError = fmt.Sprintf(loadErrorMessage, "stories")
	}
	if tl.PostsErr != nil {
		out.PostsError = fmt.Sprintf(loadErrorMessage, "posts")
	}

	for _, s := range tl.Stories {
		out.Stories = append(out.Stories, toStoryCardViewModel(s))
	}
	for _, p := range tl.Posts {
		out.Posts = append(out.Posts, toPostCardViewModel(p))
	}

	return out
}

func toStoryCardViewModel(s model.Story) vm.StoryCardViewModel {
	return vm.StoryCardViewModel{
		ID:       s.ID,
		Username: s.Username,
		ImageURL: safeImageURL(s.ImageURL),
	}
}

func toPostCardViewModel(p model.Post) vm.PostCardViewModel {
	return vm.PostCardViewModel{
		ID:              p.ID,
		Username:        p.Username,
		ImageURL:        safeImageURL(p.ImageURL),
		DescriptionHTML: RenderMarkdown(p.Description),
		LikesLabel:      likesLabel(p.Likes),
	}
}

func likesLabel(n int) string {
	if n == 1 {
		return "1 like"
	}
	return fmt.Sprintf("%d likes", n)
}

// safeImageURL returns raw if it is an absolute http(s) URL, else "".
func safeImageURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
