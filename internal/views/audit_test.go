package views

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/fpang/photo-curator/internal/api"
)

func activityBackend(n int) *fakeBackend {
	b := newFakeBackend()
	for i := 0; i < n; i++ {
		action := "rate"
		if i%3 == 0 {
			action = "tag"
		}
		b.events = append(b.events, api.ActivityEvent{
			ID:     fmt.Sprintf("e%d", i),
			Actor:  fmt.Sprintf("user%d", i%2),
			Action: action,
		})
	}
	return b
}

func TestAuditPaging(t *testing.T) {
	b := activityBackend(5)
	a := NewAudit(b, Options{PageSize: 2})
	ctx := context.Background()

	if err := a.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if p := a.Page(); len(p.Events) != 2 || p.Total != 5 {
		t.Fatalf("page = %+v", p)
	}
	if a.PrevPage() {
		t.Error("PrevPage on first page")
	}
	for want := 2; want <= 4; want += 2 {
		if !a.NextPage() {
			t.Fatalf("NextPage to %d", want)
		}
		if err := a.Load(ctx); err != nil {
			t.Fatal(err)
		}
		if a.Query().Offset != want {
			t.Errorf("offset = %d", a.Query().Offset)
		}
	}
	if a.NextPage() {
		t.Error("NextPage past the end")
	}
	if got := len(a.Page().Events); got != 1 {
		t.Errorf("last page has %d events", got)
	}
}

func TestAuditFiltersResetOffset(t *testing.T) {
	b := activityBackend(6)
	a := NewAudit(b, Options{PageSize: 2})
	ctx := context.Background()
	if err := a.Load(ctx); err != nil {
		t.Fatal(err)
	}
	a.NextPage()

	a.SetActor("user0")
	a.SetAction("tag")
	if err := a.Load(ctx); err != nil {
		t.Fatal(err)
	}
	q := b.activity[len(b.activity)-1]
	if q.Offset != 0 || q.Actor != "user0" || q.Action != "tag" {
		t.Errorf("query = %+v", q)
	}
	for _, ev := range a.Page().Events {
		if ev.Actor != "user0" || ev.Action != "tag" {
			t.Errorf("unexpected event %+v", ev)
		}
	}
}

func TestAuditDefaultPageSizeAndActions(t *testing.T) {
	b := activityBackend(4)
	a := NewAudit(b, Options{})
	if a.Query().Limit != DefaultAuditPageSize {
		t.Errorf("limit = %d", a.Query().Limit)
	}
	if err := a.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := a.Actions(); !reflect.DeepEqual(got, []string{"rate", "tag"}) {
		t.Errorf("actions = %v", got)
	}
}
