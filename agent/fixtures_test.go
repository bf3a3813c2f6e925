package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"datachat/dataset"
)

// titanicCSV generates a deterministic 891x12 passenger table with the
// well-known shape: 577 male / 314 female, 177 missing ages, 687 missing
// cabins, 2 missing embarkation ports.
func titanicCSV() string {
	var b strings.Builder
	b.WriteString("passenger_id,survived,pclass,name,sex,age,sibsp,parch,ticket,fare,cabin,embarked\n")
	for i := 0; i < 891; i++ {
		sex := "male"
		if i >= 577 {
			sex = "female"
		}
		age := ""
		if i >= 177 {
			age = strconv.FormatFloat(float64(18+i%50)+0.5, 'f', 1, 64)
		}
		cabin := ""
		if i >= 687 {
			cabin = fmt.Sprintf("C%d", i)
		}
		embarked := "S"
		switch {
		case i < 2:
			embarked = ""
		case i%7 == 0:
			embarked = "C"
		case i%11 == 0:
			embarked = "Q"
		}
		survived := 0
		if i%8 < 3 {
			survived = 1
		}
		fmt.Fprintf(&b, "%d,%d,%d,Passenger %d,%s,%s,%d,%d,T%05d,%.2f,%s,%s\n",
			i+1, survived, 1+i%3, i+1, sex, age, i%3, i%2, i, 7.25+float64(i%100), cabin, embarked)
	}
	return b.String()
}

func makeTitanic(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromCSV(strings.NewReader(titanicCSV()), "titanic.csv")
	if err != nil {
		t.Fatalf("FromCSV: %v", err)
	}
	return ds
}

func titanicStore(t *testing.T) *dataset.Store {
	t.Helper()
	store := dataset.NewStore()
	store.Replace(makeTitanic(t))
	return store
}

// makeScores builds a small dataset with two perfectly correlated numeric
// columns and one text column.
func makeScores(t *testing.T) *dataset.Dataset {
	t.Helper()
	csv := "x,y,grade\n1,2,a\n2,4,b\n3,6,a\n4,8,a\n5,10,c\n"
	ds, err := dataset.FromCSV(strings.NewReader(csv), "scores.csv")
	if err != nil {
		t.Fatalf("FromCSV: %v", err)
	}
	return ds
}

func mustCSV(t *testing.T, csv string) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.FromCSV(strings.NewReader(csv), "test.csv")
	if err != nil {
		t.Fatalf("FromCSV: %v", err)
	}
	return ds
}

func runOp(t *testing.T, op *Operation, ds *dataset.Dataset, args string) (any, *OpError) {
	t.Helper()
	return op.Handler(context.Background(), ds, args)
}

func mustValue(t *testing.T, v any, opErr *OpError) any {
	t.Helper()
	if opErr != nil {
		t.Fatalf("unexpected operation error: kind=%s %s", opErr.Kind, opErr.Message)
	}
	return v
}

func mustOpError(t *testing.T, v any, opErr *OpError, kind ErrorKind) *OpError {
	t.Helper()
	if opErr == nil {
		t.Fatalf("expected %s error, got value %#v", kind, v)
	}
	if opErr.Kind != kind {
		t.Fatalf("expected error kind %s, got %s (%s)", kind, opErr.Kind, opErr.Message)
	}
	return opErr
}
