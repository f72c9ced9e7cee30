package handlers

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"regexp"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"relatorios/internal/apperrors"
	"relatorios/internal/attachments"
)

var indexedPhotoKey = regexp.MustCompile(`^photos\[(\d+)\]$`)

// Legacy forms send files and titles as two parallel lists.
var (
	legacyFileKeys  = []string{"photos[]", "photos", "fotos"}
	legacyTitleKeys = []string{"photo_titles[]", "photo_titles", "foto_nomes[]"}
	removeKeys      = []string{"remove_photo[]", "remove_photo", "remover_foto"}
)

// parseUploads collects photo uploads with their titles. Files sent as
// photos[N] are paired with photo_titles[N]; files sent in a plain list are
// paired with the title list by position, counting empty file inputs as
// positions too. It must run before the form is bound.
func parseUploads(c *gin.Context) ([]attachments.Upload, error) {
	slots, err := scanFileSlots(c, legacyFileKeys)
	if err != nil {
		return nil, apperrors.Invalid("invalid multipart form: %v", err)
	}
	form, err := c.MultipartForm()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Invalid("invalid multipart form: %v", err)
	}

	var uploads []attachments.Upload

	type indexed struct {
		n    int
		file *multipart.FileHeader
	}
	var keyed []indexed
	for key, files := range form.File {
		m := indexedPhotoKey.FindStringSubmatch(key)
		if m == nil || len(files) == 0 {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		keyed = append(keyed, indexed{n: n, file: files[0]})
	}
	sort.Slice(keyed, func(i, j int) bool { return keyed[i].n < keyed[j].n })
	for _, k := range keyed {
		titles, ok := form.Value["photo_titles["+strconv.Itoa(k.n)+"]"]
		up, err := readUpload(k.file, first(titles))
		if err != nil {
			return nil, err
		}
		up.Untitled = !ok || len(titles) == 0
		uploads = append(uploads, up)
	}

	titles := firstNonEmpty(form.Value, legacyTitleKeys)
	for _, key := range legacyFileKeys {
		files := form.File[key]
		if len(files) == 0 {
			continue
		}
		positions := filePositions(slots[key], len(files))
		for i, fh := range files {
			pos := positions[i]
			up, err := readUpload(fh, "")
			if err != nil {
				return nil, err
			}
			if pos < len(titles) {
				up.Title = titles[pos]
			} else {
				up.Untitled = true
			}
			uploads = append(uploads, up)
		}
		break
	}
	return uploads, nil
}

// scanFileSlots walks the multipart body in submission order and records the
// file name of every part sent under keys; an empty file input records "".
// The body is restored for later parsing.
func scanFileSlots(c *gin.Context, keys []string) (map[string][]string, error) {
	mediaType, params, err := mime.ParseMediaType(c.GetHeader("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" || params["boundary"] == "" {
		return nil, nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	wanted := make(map[string]bool, len(keys))
	for _, k := range keys {
		wanted[k] = true
	}
	slots := map[string][]string{}
	mr := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return slots, nil
		}
		if err != nil {
			return nil, err
		}
		if name := part.FormName(); wanted[name] {
			slots[name] = append(slots[name], part.FileName())
		}
		part.Close()
	}
}

// filePositions maps the n non-empty files of a key to their slot index.
// When the slots do not account for every file, files fall back to their
// order among files.
func filePositions(slots []string, n int) []int {
	positions := make([]int, 0, n)
	for i, name := range slots {
		if name != "" {
			positions = append(positions, i)
		}
	}
	if len(positions) != n {
		positions = positions[:0]
		for i := 0; i < n; i++ {
			positions = append(positions, i)
		}
	}
	return positions
}

func readUpload(fh *multipart.FileHeader, title string) (attachments.Upload, error) {
	up := attachments.Upload{Filename: fh.Filename, Title: title}
	if fh.Filename == "" {
		return up, nil
	}
	f, err := fh.Open()
	if err != nil {
		return up, apperrors.Storage("failed to open upload", err)
	}
	defer f.Close()
	if up.Data, err = io.ReadAll(f); err != nil {
		return up, apperrors.Storage("failed to read upload", err)
	}
	return up, nil
}

// parseRemoveIDs reads the ids of photos marked for removal. Values that are
// not ids are ignored.
func parseRemoveIDs(c *gin.Context) []uint {
	var ids []uint
	for _, key := range removeKeys {
		for _, v := range c.PostFormArray(key) {
			if id, err := strconv.ParseUint(v, 10, 64); err == nil && id > 0 {
				ids = append(ids, uint(id))
			}
		}
	}
	return ids
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func firstNonEmpty(values map[string][]string, keys []string) []string {
	for _, k := range keys {
		if len(values[k]) > 0 {
			return values[k]
		}
	}
	return nil
}
