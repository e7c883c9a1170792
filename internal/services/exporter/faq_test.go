package exporter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatFAQ(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{
			name: "headings",
			in:   "### What is MAWB?\nThe master air waybill.\n\n### What is HAWB?\nThe house air waybill.\nIssued by the forwarder.",
			want: "* What is MAWB?\nThe master air waybill.\n\n* What is HAWB?\nThe house air waybill.\nIssued by the forwarder.",
		},
		{
			name: "bullets",
			in:   "* Сколько идёт груз?\n  Около 30 дней.  \n* Нужна ли страховка?\nДа.",
			want: "* Сколько идёт груз?\nОколо 30 дней.\n\n* Нужна ли страховка?\nДа.",
		},
		{
			name: "question without answer",
			in:   "### Lonely question",
			want: "* Lonely question\n",
		},
		{
			name: "crlf and blank blocks",
			in:   "### \r\n### Q\r\nA\r\n",
			want: "* Q\nA",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFAQ(tt.in))
		})
	}
}
