package httputil

import (
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestQueryHelpers(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?page=3&bad=x&threshold=0.75&columns=a,%20b&columns=c&empty=%20", nil)

	if n, err := QueryInt(r, "page", 1); err != nil || n != 3 {
		t.Errorf("QueryInt(page) = %d, %v", n, err)
	}
	if n, err := QueryInt(r, "page_size", 50); err != nil || n != 50 {
		t.Errorf("QueryInt(page_size) = %d, %v; want default", n, err)
	}
	if _, err := QueryInt(r, "bad", 1); err == nil {
		t.Error("QueryInt(bad) succeeded")
	}
	if f, err := QueryFloat(r, "threshold", 0.8); err != nil || f != 0.75 {
		t.Errorf("QueryFloat = %v, %v", f, err)
	}
	if got := QueryList(r, "columns"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("QueryList = %v", got)
	}
	if QueryString(r, "empty") != nil || QueryString(r, "missing") != nil {
		t.Error("blank query string not nil")
	}
}
