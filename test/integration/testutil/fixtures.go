package testutil

import (
	"fmt"
	"strings"

	"sweeps/pkg/model"
)

type BatchBuilder struct {
	req model.BatchRequest
}

func NewBatchBuilder() *BatchBuilder {
	return &BatchBuilder{
		req: model.BatchRequest{
			Source: "integration",
			Rows:   []model.Row{},
		},
	}
}

// WithRow appends a row; its index is its position in the batch.
func (b *BatchBuilder) WithRow(title, link string, endDate model.RawValue) *BatchBuilder {
	b.req.Rows = append(b.req.Rows, model.Row{
		Title:    model.Text(title),
		URL:      model.Text(link),
		EndDate:  endDate,
		RowIndex: len(b.req.Rows),
	})
	return b
}

func (b *BatchBuilder) WithOptions(opts model.ProcessOptions) *BatchBuilder {
	b.req.Options = &opts
	return b
}

func (b *BatchBuilder) WithSource(source string) *BatchBuilder {
	b.req.Source = source
	return b
}

func (b *BatchBuilder) Build() *model.BatchRequest {
	req := b.req
	return &req
}

// CSV renders the batch with the default sheet headers.
func (b *BatchBuilder) CSV() []byte {
	var sb strings.Builder
	sb.WriteString("Scrub_Title,Entry_Link,End_Date\n")
	for _, r := range b.req.Rows {
		fmt.Fprintf(&sb, "%q,%q,%q\n", r.Title.String(), r.URL.String(), r.EndDate.String())
	}
	return []byte(sb.String())
}

// UniqueBatch returns n rows with distinct signatures and links.
func UniqueBatch(n int) *BatchBuilder {
	b := NewBatchBuilder()
	for i := 0; i < n; i++ {
		b.WithRow(
			fmt.Sprintf("Grand Prize%03d Giveaway", i),
			fmt.Sprintf("https://sweeps.example.com/entry/%d", i),
			model.Text("2030-12-31"),
		)
	}
	return b
}
