package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/youtube/v3"
)

// UploadedVideo is an insert received by [FakeYouTube].
type UploadedVideo struct {
	ID         string
	Parts      []string
	UploadType string
	Video      youtube.Video
	Body       []byte
	Chunks     int
}

// FakeYouTube is an httptest server speaking enough of the Data API for uploads,
// thumbnail sets, video get/update/delete and listing the caller's channels. Point a client at it with
// option.WithEndpoint(fake.URL + "/").
type FakeYouTube struct {
	*httptest.Server

	// InsertStatus, when set, fails every insert with that status.
	InsertStatus int
	// ThumbnailStatus, when set, fails every thumbnail set with that status.
	ThumbnailStatus int
	// ChannelsStatus, when set, fails every channel list with that status.
	ChannelsStatus int

	mu         sync.Mutex
	uploads    []*UploadedVideo
	sessions   map[string]*UploadedVideo
	thumbnails map[string][]byte
	videos     map[string]*youtube.Video
	owned      []string
	deleted    []string
	auth       []string
	next       int
}

// NewFakeYouTube starts a [FakeYouTube] closed at test cleanup.
func NewFakeYouTube(t *testing.T) *FakeYouTube {
	t.Helper()
	f := &FakeYouTube{
		sessions:   map[string]*UploadedVideo{},
		thumbnails: map[string][]byte{},
		videos:     map[string]*youtube.Video{},
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// AddVideo registers a video returned by list calls.
func (f *FakeYouTube) AddVideo(v *youtube.Video) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videos[v.Id] = v
}

// SetOwnedChannels sets the channel ids returned for mine=true channel lists.
func (f *FakeYouTube) SetOwnedChannels(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owned = append([]string(nil), ids...)
}

// Uploads returns the completed inserts in arrival order.
func (f *FakeYouTube) Uploads() []*UploadedVideo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*UploadedVideo(nil), f.uploads...)
}

// Thumbnail returns the image set for videoID.
func (f *FakeYouTube) Thumbnail(videoID string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.thumbnails[videoID]
	return data, ok
}

// Deleted returns the deleted video ids.
func (f *FakeYouTube) Deleted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

// Authorizations returns the Authorization header of every request.
func (f *FakeYouTube) Authorizations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auth...)
}

func (f *FakeYouTube) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.mu.Unlock()

	switch {
	case strings.HasPrefix(r.URL.Path, "/upload/session/"):
		f.serveChunk(w, r)
	case r.URL.Path == "/upload/youtube/v3/videos" && r.Method == http.MethodPost:
		f.serveInsert(w, r)
	case r.URL.Path == "/upload/youtube/v3/thumbnails/set":
		f.serveThumbnail(w, r)
	case r.URL.Path == "/youtube/v3/videos":
		f.serveVideos(w, r)
	case r.URL.Path == "/youtube/v3/channels" && r.Method == http.MethodGet:
		f.serveChannels(w, r)
	default:
		writeAPIError(w, http.StatusNotFound, "notFound", "unknown path "+r.URL.Path)
	}
}

func (f *FakeYouTube) serveInsert(w http.ResponseWriter, r *http.Request) {
	if f.InsertStatus != 0 {
		io.Copy(io.Discard, r.Body)
		writeAPIError(w, f.InsertStatus, "quotaExceeded", "insert rejected")
		return
	}

	up := &UploadedVideo{Parts: r.URL.Query()["part"], UploadType: r.URL.Query().Get("uploadType")}

	switch up.UploadType {
	case "resumable":
		if err := json.NewDecoder(r.Body).Decode(&up.Video); err != nil {
			writeAPIError(w, http.StatusBadRequest, "parseError", err.Error())
			return
		}
		f.mu.Lock()
		f.next++
		session := fmt.Sprintf("s%d", f.next)
		f.sessions[session] = up
		f.mu.Unlock()
		w.Header().Set("Location", f.URL+"/upload/session/"+session)
		w.WriteHeader(http.StatusOK)
	case "multipart":
		if err := readMultipart(r, &up.Video, &up.Body); err != nil {
			writeAPIError(w, http.StatusBadRequest, "parseError", err.Error())
			return
		}
		up.Chunks = 1
		f.finish(w, up)
	default:
		writeAPIError(w, http.StatusBadRequest, "badRequest", "unsupported uploadType "+up.UploadType)
	}
}

func (f *FakeYouTube) serveChunk(w http.ResponseWriter, r *http.Request) {
	session := strings.TrimPrefix(r.URL.Path, "/upload/session/")
	f.mu.Lock()
	up, ok := f.sessions[session]
	f.mu.Unlock()
	if !ok {
		writeAPIError(w, http.StatusNotFound, "notFound", "unknown session")
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeAPIError(w, http.StatusBadRequest, "badRequest", err.Error())
		return
	}

	f.mu.Lock()
	up.Body = append(up.Body, data...)
	up.Chunks++
	received := int64(len(up.Body))
	f.mu.Unlock()

	// Content-Range is "bytes a-b/total", "bytes a-b/*" or "bytes */total".
	total := int64(-1)
	if i := strings.LastIndex(r.Header.Get("Content-Range"), "/"); i >= 0 {
		if n, err := strconv.ParseInt(r.Header.Get("Content-Range")[i+1:], 10, 64); err == nil {
			total = n
		}
	}

	if total < 0 || received < total {
		w.Header().Set("Range", fmt.Sprintf("bytes=0-%d", received-1))
		w.WriteHeader(http.StatusPermanentRedirect)
		return
	}

	f.mu.Lock()
	delete(f.sessions, session)
	f.mu.Unlock()
	f.finish(w, up)
}

func (f *FakeYouTube) finish(w http.ResponseWriter, up *UploadedVideo) {
	f.mu.Lock()
	f.next++
	up.ID = fmt.Sprintf("vid%03d", f.next)
	f.uploads = append(f.uploads, up)
	video := up.Video
	video.Id = up.ID
	f.videos[up.ID] = &video
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, video)
}

func (f *FakeYouTube) serveThumbnail(w http.ResponseWriter, r *http.Request) {
	if f.ThumbnailStatus != 0 {
		io.Copy(io.Discard, r.Body)
		writeAPIError(w, f.ThumbnailStatus, "invalidImage", "thumbnail rejected")
		return
	}

	var data []byte
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		var ignored map[string]any
		if err := readMultipart(r, &ignored, &data); err != nil {
			writeAPIError(w, http.StatusBadRequest, "parseError", err.Error())
			return
		}
	} else {
		data, _ = io.ReadAll(r.Body)
	}

	videoID := r.URL.Query().Get("videoId")
	f.mu.Lock()
	f.thumbnails[videoID] = data
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"kind": "youtube#thumbnailSetResponse"})
}

func (f *FakeYouTube) serveVideos(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		items := []*youtube.Video{}
		for _, id := range strings.Split(r.URL.Query().Get("id"), ",") {
			if v, ok := f.videos[id]; ok {
				items = append(items, v)
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPut:
		var v youtube.Video
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			writeAPIError(w, http.StatusBadRequest, "parseError", err.Error())
			return
		}
		if _, ok := f.videos[v.Id]; !ok {
			writeAPIError(w, http.StatusNotFound, "videoNotFound", "video not found")
			return
		}
		f.videos[v.Id] = &v
		writeJSON(w, http.StatusOK, v)
	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if _, ok := f.videos[id]; !ok {
			writeAPIError(w, http.StatusNotFound, "videoNotFound", "video not found")
			return
		}
		delete(f.videos, id)
		f.deleted = append(f.deleted, id)
		w.WriteHeader(http.StatusNoContent)
	default:
		writeAPIError(w, http.StatusMethodNotAllowed, "badRequest", r.Method)
	}
}

func (f *FakeYouTube) serveChannels(w http.ResponseWriter, r *http.Request) {
	if f.ChannelsStatus != 0 {
		writeAPIError(w, f.ChannelsStatus, "forbidden", "channel list rejected")
		return
	}
	if r.URL.Query().Get("mine") != "true" {
		writeAPIError(w, http.StatusBadRequest, "missingRequiredParameter", "only mine=true is supported")
		return
	}

	f.mu.Lock()
	items := make([]*youtube.Channel, 0, len(f.owned))
	for _, id := range f.owned {
		items = append(items, &youtube.Channel{Id: id, Kind: "youtube#channel"})
	}
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"kind": "youtube#channelListResponse", "items": items})
}

func readMultipart(r *http.Request, meta any, media *[]byte) error {
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return err
	}

	mr := multipart.NewReader(r.Body, params["boundary"])
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, part); err != nil {
			return err
		}

		if strings.HasPrefix(part.Header.Get("Content-Type"), "application/json") {
			if buf.Len() > 0 {
				if err := json.Unmarshal(buf.Bytes(), meta); err != nil {
					return fmt.Errorf("metadata part: %w", err)
				}
			}
			continue
		}
		*media = buf.Bytes()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, reason, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": message,
			"errors":  []map[string]string{{"reason": reason, "message": message}},
		},
	})
}
