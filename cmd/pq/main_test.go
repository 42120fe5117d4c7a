package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc"

	"github.com/and161185/playqueue/internal/api/queuev1"
	"github.com/and161185/playqueue/internal/auth"
)

func withTmpConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "playqueue")
}

func Test_cfgDir_And_Paths(t *testing.T) {
	base := withTmpConfig(t)
	if got := cfgDir(); got != base {
		t.Fatalf("cfgDir=%q, want %q", got, base)
	}
	if !strings.HasPrefix(tokenPath(), base) || !strings.HasSuffix(tokenPath(), "token.json") {
		t.Fatalf("tokenPath unexpected: %s", tokenPath())
	}
}

func Test_token_SaveLoad(t *testing.T) {
	_ = withTmpConfig(t)

	if _, err := loadToken(); err == nil {
		t.Fatalf("expected error when token file missing")
	}
	if err := saveToken("tok", time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("saveToken: %v", err)
	}
	tok, err := loadToken()
	if err != nil || tok != "tok" {
		t.Fatalf("loadToken: tok=%q err=%v", tok, err)
	}
	st, err := os.Stat(tokenPath())
	if err != nil || st.Mode().Perm() != 0o600 {
		t.Fatalf("token file mode: %v %v", st, err)
	}
	if err := saveToken("tok2", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("saveToken expired: %v", err)
	}
	if _, err := loadToken(); err == nil {
		t.Fatalf("want error for expired token")
	}
}

func Test_bearerCreds_Metadata(t *testing.T) {
	t.Parallel()

	b := bearerCreds{token: "T", secure: true}
	md, err := b.GetRequestMetadata(context.Background())
	if err != nil {
		t.Fatalf("GetRequestMetadata: %v", err)
	}
	if md["authorization"] != "Bearer T" {
		t.Fatalf("auth header mismatch: %v", md)
	}
	if !b.RequireTransportSecurity() {
		t.Fatalf("bearerCreds over TLS must require it")
	}
	if (bearerCreds{token: "T"}).RequireTransportSecurity() {
		t.Fatalf("plaintext bearerCreds must not require TLS")
	}
}

func Test_loadTLS_Variants(t *testing.T) {
	t.Parallel()

	for name, o := range map[string]dialOptions{
		"plaintext": {plaintext: true},
		"insecure":  {insecure: true},
		"system":    {},
	} {
		creds, err := loadTLS(o)
		if err != nil || creds == nil {
			t.Fatalf("%s: %v %v", name, creds, err)
		}
	}

	tmp := filepath.Join(t.TempDir(), "bad.pem")
	_ = os.WriteFile(tmp, []byte("not pem"), 0o600)
	creds, err := loadTLS(dialOptions{caPath: tmp})
	if err == nil || creds != nil {
		t.Fatalf("bad CA should error, got creds=%v err=%v", creds, err)
	}
	if _, err := loadTLS(dialOptions{caPath: filepath.Join(t.TempDir(), "missing.pem")}); err == nil {
		t.Fatalf("missing CA should error")
	}
}

func Test_printJSON_WritesPretty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := printJSON(&buf, map[string]any{"a": 1}); err != nil {
		t.Fatalf("printJSON: %v", err)
	}
	var m map[string]any
	if json.Unmarshal(buf.Bytes(), &m) != nil || m["a"] != float64(1) {
		t.Fatalf("printJSON produced invalid json: %s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\n  ")) {
		t.Fatalf("printJSON should indent")
	}
}

func Test_printItems(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	printItems(&buf, nil, nil)
	if !strings.Contains(buf.String(), "No items found") {
		t.Fatalf("empty list output: %q", buf.String())
	}

	buf.Reset()
	pos := int32(10)
	printItems(&buf, []*queuev1.Item{
		{ID: "a", Status: "unplayed", Position: &pos, Title: "First"},
		{ID: "b", Status: "completed", Title: "Second"},
	}, &queuev1.PageMeta{TotalCount: 2, TotalPages: 1, CurrentPage: 1, PageSize: 50})
	out := buf.String()
	for _, want := range []string{"First", "Second", "10", "DONE", "page 1/1, 2 items"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

// ---- commands against a fake client ----

type fakeClient struct {
	created *queuev1.CreateItemRequest
	updated *queuev1.UpdateItemRequest
	listed  *queuev1.ListItemsRequest
	deleted string
	err     error
}

func (f *fakeClient) item(id string) *queuev1.ItemResponse {
	pos := int32(0)
	return &queuev1.ItemResponse{Item: &queuev1.Item{ID: id, Status: "unplayed", Position: &pos, Title: "t"}}
}

func (f *fakeClient) CreateItem(_ context.Context, in *queuev1.CreateItemRequest, _ ...grpc.CallOption) (*queuev1.ItemResponse, error) {
	f.created = in
	return f.item("new"), f.err
}

func (f *fakeClient) UpdateItem(_ context.Context, in *queuev1.UpdateItemRequest, _ ...grpc.CallOption) (*queuev1.ItemResponse, error) {
	f.updated = in
	return f.item(in.ID), f.err
}

func (f *fakeClient) GetItem(_ context.Context, in *queuev1.GetItemRequest, _ ...grpc.CallOption) (*queuev1.ItemResponse, error) {
	return f.item(in.ID), f.err
}

func (f *fakeClient) DeleteItem(_ context.Context, in *queuev1.DeleteItemRequest, _ ...grpc.CallOption) (*queuev1.DeleteItemResponse, error) {
	f.deleted = in.ID
	return &queuev1.DeleteItemResponse{}, f.err
}

func (f *fakeClient) ListItems(_ context.Context, in *queuev1.ListItemsRequest, _ ...grpc.CallOption) (*queuev1.ListItemsResponse, error) {
	f.listed = in
	return &queuev1.ListItemsResponse{Items: []*queuev1.Item{f.item("x").Item}, Meta: queuev1.PageMeta{TotalCount: 1, TotalPages: 1, CurrentPage: 1, PageSize: 50}}, f.err
}

func (f *fakeClient) Resort(context.Context, *queuev1.ResortRequest, ...grpc.CallOption) (*queuev1.ResortResponse, error) {
	return &queuev1.ResortResponse{Moved: 3}, f.err
}

func run(t *testing.T, fc *fakeClient, args ...string) (string, error) {
	t.Helper()
	opts := &rootOptions{connect: func(context.Context) (queuev1.QueueClient, func(), error) {
		return fc, func() {}, nil
	}}
	cmd := newRootCommand(opts)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func Test_addCommand(t *testing.T) {
	fc := &fakeClient{}
	_, err := run(t, fc, "add", "--identifier", "ep1", "--title", "Episode", "--url", "u", "--source", "feed", "--first")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	f := fc.created.Item
	if *f.Identifier != "ep1" || *f.Title != "Episode" || f.Placement.Kind != queuev1.PlaceFirst {
		t.Fatalf("unexpected create request: %+v", f)
	}
	if f.Playtime != nil || f.Description != nil {
		t.Fatalf("unset flags must not be sent: %+v", f)
	}

	if _, err := run(t, &fakeClient{}, "add", "--title", "x"); err == nil {
		t.Fatalf("add without --identifier must fail")
	}
	if _, err := run(t, &fakeClient{}, "add", "--identifier", "x", "--first", "--last"); err == nil {
		t.Fatalf("exclusive placement flags must fail")
	}
}

func Test_moveAndDoneCommands(t *testing.T) {
	fc := &fakeClient{}
	if _, err := run(t, fc, "move", "id1", "--after", "id0"); err != nil {
		t.Fatalf("move: %v", err)
	}
	if fc.updated.ID != "id1" || fc.updated.Item.Placement.Kind != queuev1.PlaceAfter || fc.updated.Item.Placement.AfterID != "id0" {
		t.Fatalf("unexpected move request: %+v", fc.updated)
	}
	if _, err := run(t, fc, "move", "id1"); err == nil {
		t.Fatalf("move without placement must fail")
	}

	if _, err := run(t, fc, "done", "id2"); err != nil {
		t.Fatalf("done: %v", err)
	}
	if fc.updated.ID != "id2" || *fc.updated.Item.Status != "completed" || fc.updated.Item.Placement != nil {
		t.Fatalf("unexpected done request: %+v", fc.updated)
	}
}

func Test_listCommand(t *testing.T) {
	fc := &fakeClient{}
	out, err := run(t, fc, "list", "--status", "unplayed,active", "--source", "feed", "--page", "2", "--size", "10")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(fc.listed.Statuses) != 2 || fc.listed.Sources[0] != "feed" || fc.listed.Page != 2 || fc.listed.PageSize != 10 {
		t.Fatalf("unexpected list request: %+v", fc.listed)
	}
	if !strings.Contains(out, "page 1/1") {
		t.Fatalf("list output: %s", out)
	}

	out, err = run(t, fc, "--json", "list")
	if err != nil {
		t.Fatalf("list --json: %v", err)
	}
	var resp queuev1.ListItemsResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil || len(resp.Items) != 1 {
		t.Fatalf("list --json output: %s (%v)", out, err)
	}
}

func Test_rmResortShowCommands(t *testing.T) {
	fc := &fakeClient{}
	out, err := run(t, fc, "rm", "gone")
	if err != nil || fc.deleted != "gone" || !strings.Contains(out, "removed gone") {
		t.Fatalf("rm: %q %v", out, err)
	}
	out, err = run(t, fc, "resort")
	if err != nil || !strings.Contains(out, "3 items moved") {
		t.Fatalf("resort: %q %v", out, err)
	}
	out, err = run(t, fc, "show", "abc")
	if err != nil || !strings.Contains(out, "id:         abc") {
		t.Fatalf("show: %q %v", out, err)
	}
}

func Test_commandError(t *testing.T) {
	boom := errors.New("boom")
	if _, err := run(t, &fakeClient{err: boom}, "resort"); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
}

func Test_tokenCommand(t *testing.T) {
	_ = withTmpConfig(t)
	owner := uuid.Must(uuid.NewV4())

	if _, err := run(t, &fakeClient{}, "token", "--key", ""); err == nil {
		t.Fatalf("token without key must fail")
	}
	out, err := run(t, &fakeClient{}, "token", "--key", "secret", "--owner", owner.String(), "--ttl", "1h")
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if !strings.Contains(out, owner.String()) {
		t.Fatalf("token output: %s", out)
	}
	tok, err := loadToken()
	if err != nil {
		t.Fatalf("loadToken: %v", err)
	}
	got, err := auth.NewVerifier([]byte("secret")).Verify(tok)
	if err != nil || got != owner {
		t.Fatalf("saved token: owner=%s err=%v", got, err)
	}
}
