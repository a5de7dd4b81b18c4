package statement

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gitlab.com/yelinaung/expense-importer/internal/classifier"
	"gitlab.com/yelinaung/expense-importer/internal/models"
)

var fixedNow = time.Date(2025, time.July, 1, 9, 30, 0, 0, time.UTC)

type stubClassifier struct {
	calls []string
	panic string
}

func (s *stubClassifier) Classify(_ context.Context, description string, _ []models.Category) classifier.Result {
	if s.panic != "" && strings.Contains(description, s.panic) {
		panic("classifier exploded")
	}
	s.calls = append(s.calls, description)
	return classifier.Result{CategoryID: 42, Confidence: 0.5, Method: models.ClassifiedByKeyword}
}

func newTestParser(c Classifier) *Parser {
	return NewParser(c).WithClock(func() time.Time { return fixedNow })
}

func TestParse(t *testing.T) {
	t.Parallel()

	text := "\uFEFFDate,Description,Amount\r\n" +
		"12/06/2025,\"Store, Inc.\",12.50\r\n" +
		"\r\n" +
		"13/06/2025,Refund,-7,25\r\n" +
		"14/06/2025,Zero,0.00\r\n" +
		"15/06/2025,,9.99\r\n" +
		"short line\r\n" +
		"someday,Mystery,3.00\r\n"

	stub := &stubClassifier{}
	res, err := newTestParser(stub).Parse(context.Background(), text, DefaultProfile, nil)
	require.NoError(t, err)

	require.Len(t, res.Transactions, 3)

	first := res.Transactions[0]
	require.Equal(t, 2, first.Line)
	require.Equal(t, "Store, Inc.", first.Description)
	require.True(t, decimal.RequireFromString("12.50").Equal(first.Amount))
	require.Equal(t, day(2025, time.June, 12), first.Date)
	require.Equal(t, 42, first.CategoryID)
	require.Equal(t, models.ClassifiedByKeyword, first.ClassifiedBy)
	require.Equal(t, "12.50", first.OriginalAmount)

	// The unquoted European amount splits into two fields; the third column
	// is "-7", made absolute.
	refund := res.Transactions[1]
	require.Equal(t, 4, refund.Line)
	require.True(t, decimal.NewFromInt(7).Equal(refund.Amount))

	mystery := res.Transactions[2]
	require.Equal(t, 8, mystery.Line)
	require.Equal(t, day(2025, time.July, 1), mystery.Date)

	require.Equal(t, []models.LineIssue{
		{Line: 5, Kind: models.IssueSkipped, Reason: `zero or unreadable amount "0.00"`},
		{Line: 6, Kind: models.IssueSkipped, Reason: "empty description"},
		{Line: 7, Kind: models.IssueFailed, Reason: "expected at least 3 columns, found 1"},
		{Line: 8, Kind: models.IssueWarning, Reason: `unrecognized date "someday", defaulted to 2025-07-01`},
	}, res.Issues)

	require.Equal(t, []string{"Store, Inc.", "Refund", "Mystery"}, stub.calls)
}

func TestParse_HeaderOnly(t *testing.T) {
	t.Parallel()

	for _, text := range []string{"", "Date,Description,Amount", "Date,Description,Amount\n\n\n"} {
		res, err := newTestParser(&stubClassifier{}).Parse(context.Background(), text, DefaultProfile, nil)
		require.NoError(t, err)
		require.Empty(t, res.Transactions)
		require.Empty(t, res.Issues)
	}
}

func TestParse_DetectsSemicolons(t *testing.T) {
	t.Parallel()

	text := "Datum;Omschrijving;Bedrag\n01/02/2025;\"Albert Heijn; Utrecht\";1.234,56\n"
	res, err := newTestParser(&stubClassifier{}).Parse(context.Background(), text, DefaultProfile, nil)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	require.Equal(t, "Albert Heijn; Utrecht", res.Transactions[0].Description)
	require.True(t, decimal.RequireFromString("1234.56").Equal(res.Transactions[0].Amount))
	require.Equal(t, day(2025, time.February, 1), res.Transactions[0].Date)
}

func TestParse_MonthFirstSource(t *testing.T) {
	t.Parallel()

	text := "Date,Description,Amount\n02/03/2025,AMAZON MKTPLACE,19.99\n"
	res, err := newTestParser(&stubClassifier{}).Parse(context.Background(), text, ProfileFor("Chase"), nil)
	require.NoError(t, err)
	require.Equal(t, day(2025, time.February, 3), res.Transactions[0].Date)
}

func TestParse_LinePanicBecomesIssue(t *testing.T) {
	t.Parallel()

	text := "Date,Description,Amount\n01/01/2025,BOOM,1.00\n02/01/2025,Fine,2.00\n"
	res, err := newTestParser(&stubClassifier{panic: "BOOM"}).Parse(context.Background(), text, DefaultProfile, nil)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	require.Len(t, res.Issues, 1)
	require.Equal(t, models.IssueFailed, res.Issues[0].Kind)
	require.Equal(t, 2, res.Issues[0].Line)
}

func TestParse_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := newTestParser(&stubClassifier{}).Parse(ctx, "h\n01/01/2025,a,1\n", DefaultProfile, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, res)
}

func TestParse_LargeStatementKeepsOrder(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	b.WriteString("Date,Description,Amount\n")
	for i := 1; i <= 25; i++ {
		fmt.Fprintf(&b, "%02d/05/2025,Shop %d,%d.00\n", i, i, i)
	}

	res, err := newTestParser(&stubClassifier{}).Parse(context.Background(), b.String(), DefaultProfile, nil)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 25)
	for i, tx := range res.Transactions {
		require.Equal(t, i+2, tx.Line)
		require.Equal(t, fmt.Sprintf("Shop %d", i+1), tx.Description)
	}
}

func TestDetectDelimiter(t *testing.T) {
	t.Parallel()

	require.Equal(t, ',', detectDelimiter("a,b,c", ','))
	require.Equal(t, ';', detectDelimiter("a;b;c", ','))
	require.Equal(t, '\t', detectDelimiter("a\tb\tc", ','))
	require.Equal(t, ';', detectDelimiter("a,b", ';'))
}

func TestParse_QuotedAmounts(t *testing.T) {
	t.Parallel()

	text := "Date,Description,Amount\n" +
		`"02/03/2025","Cinema Y","-8,00"` + "\n" +
		`"03/03/2025","Market","1.234,56"` + "\n" +
		`"04/03/2025","Fuel","1.234"` + "\n" +
		`"05/03/2025","Rounding dust","0.004"` + "\n"

	res, err := newTestParser(&stubClassifier{}).Parse(context.Background(), text, DefaultProfile, nil)
	require.NoError(t, err)
	require.Len(t, res.Transactions, 3)

	want := []string{"8.00", "1234.56", "1.23"}
	for i, tx := range res.Transactions {
		require.True(t, decimal.RequireFromString(want[i]).Equal(tx.Amount), "line %d: got %s", tx.Line, tx.Amount)
	}
	require.Equal(t, "-8,00", res.Transactions[0].OriginalAmount)
	require.Equal(t, "1.234", res.Transactions[2].OriginalAmount)

	require.Equal(t, []models.LineIssue{
		{Line: 5, Kind: models.IssueSkipped, Reason: `zero or unreadable amount "0.004"`},
	}, res.Issues)
}
