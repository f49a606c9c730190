package catalog

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `{
	"zeta-card": {"bankName": "Zeta Bank", "cardName": "Platinum", "discounts": [
		{"source": "Zomato", "maxDiscount": 120, "usageLimit": {"maxUsageCount": 2, "durationInMonths": 1}}
	]},
	"alpha-any": {"bankName": "Alpha Bank", "cardType": "Debit", "discounts": []},
	"alpha-gold": {"bankName": "Alpha Bank", "cardName": "Gold", "cardType": "Credit", "discounts": [
		{"source": "EazyDiner", "offer": "25% off", "maxDiscount": 500, "minBillAmount": 1500, "applicableOn": ["Dine-in"]},
		{"source": "BookMyShow", "offerText": "Buy one get one"}
	]}
}`

func TestParse_PreservesDocumentOrder(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	require.Equal(t, []string{"zeta-card", "alpha-any", "alpha-gold"}, c.Keys())
	require.Equal(t, 3, c.Len())

	gold, ok := c.Get("alpha-gold")
	require.True(t, ok)
	require.Equal(t, "alpha-gold", gold.ID)
	require.Len(t, gold.Discounts, 2)
	require.True(t, gold.Discounts[0].MaxDiscount.Valid)
	require.Equal(t, "500", gold.Discounts[0].MaxDiscount.Decimal.String())
	require.Equal(t, "1500", gold.Discounts[0].MinBillAmount.Decimal.String())
	require.False(t, gold.Discounts[1].MaxDiscount.Valid)
	require.True(t, gold.Discounts[1].RankValue().IsZero())

	anyCard, _ := c.Get("alpha-any")
	require.Equal(t, "Any", anyCard.DisplayName())
}

func TestParse_DuplicateKeyKeepsFirstPosition(t *testing.T) {
	c, err := Parse([]byte(`{"a": {"bankName": "A"}, "b": {"bankName": "B"}, "a": {"bankName": "A2"}}`))
	require.NoError(t, err)

	require.Equal(t, []string{"a", "b"}, c.Keys())
	card, _ := c.Get("a")
	require.Equal(t, "A2", card.BankName)
}

func TestParse_RejectsNonObject(t *testing.T) {
	_, err := Parse([]byte(`[1, 2, 3]`))
	require.Error(t, err)

	_, err = Parse([]byte(`{"a": {"bankName": 12}}`))
	require.Error(t, err)

	_, err = Parse([]byte(``))
	require.Error(t, err)
}

func TestFilter(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	got := c.Filter([]string{"alpha-gold", "missing", "zeta-card", "alpha-gold"})
	require.Equal(t, []string{"alpha-gold", "zeta-card"}, got)
	require.Empty(t, c.Filter(nil))
}

func TestBankGroups(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	groups := c.BankGroups("", func(id string) bool { return id == "zeta-card" })
	require.Len(t, groups, 2)
	require.Equal(t, "Alpha Bank", groups[0].BankName)
	require.Equal(t, "Zeta Bank", groups[1].BankName)

	require.Len(t, groups[0].Cards, 2)
	require.Equal(t, "Any", groups[0].Cards[0].CardName)
	require.Equal(t, "Gold", groups[0].Cards[1].CardName)
	require.True(t, groups[1].Cards[0].Selected)
	require.False(t, groups[0].Cards[0].Selected)
}

func TestBankGroups_Query(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)

	groups := c.BankGroups("GOLD", nil)
	require.Len(t, groups, 1)
	require.Len(t, groups[0].Cards, 1)
	require.Equal(t, "alpha-gold", groups[0].Cards[0].Key)

	groups = c.BankGroups("zeta", nil)
	require.Len(t, groups, 1)
	require.Equal(t, "Zeta Bank", groups[0].BankName)

	require.Empty(t, c.BankGroups("nothing matches", nil))
}

func TestBankGroups_UnknownBank(t *testing.T) {
	c, err := Parse([]byte(`{"x": {"discounts": []}}`))
	require.NoError(t, err)

	groups := c.BankGroups("", nil)
	require.Len(t, groups, 1)
	require.Equal(t, UnknownBank, groups[0].BankName)
}

func TestLoader_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "combined.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))

	c, err := NewLoader().Load(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())
}

func TestLoader_MissingFile(t *testing.T) {
	_, err := NewLoader().Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	_, err = NewLoader().Load(context.Background(), "")
	require.Error(t, err)
}

func TestLoader_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/combined.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(sampleCatalog))
	}))
	defer srv.Close()

	c, err := NewLoader().Load(context.Background(), srv.URL+"/combined.json")
	require.NoError(t, err)
	require.Equal(t, []string{"zeta-card", "alpha-any", "alpha-gold"}, c.Keys())

	_, err = NewLoader().Load(context.Background(), srv.URL+"/other.json")
	require.Error(t, err)
}

type fakeS3 struct {
	bucket, key string
}

func (f *fakeS3) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket = *params.Bucket
	f.key = *params.Key
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte(sampleCatalog)))}, nil
}

func TestLoader_S3(t *testing.T) {
	fake := &fakeS3{}
	l := &Loader{S3Client: fake}

	c, err := l.Load(context.Background(), "s3://offers-bucket/data/combined.json")
	require.NoError(t, err)
	require.Equal(t, 3, c.Len())
	require.Equal(t, "offers-bucket", fake.bucket)
	require.Equal(t, "data/combined.json", fake.key)

	_, err = l.Load(context.Background(), "s3://only-bucket")
	require.Error(t, err)
}
