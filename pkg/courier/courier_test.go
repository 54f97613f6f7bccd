package courier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentify(t *testing.T) {
	tests := []struct {
		number string
		want   Courier
	}{
		{"JT1234567890123", JiTu},
		{"jt 1234 5678 901", JiTu},
		{"SF1234567890", SF},
		{"YT1234567890123", YTO},
		{"JDVA12345678901", JD},
		{"EA123456789CN", EMS},
		{"1012345678901", EMS},
		{"773123456789012", STO},
		{"668123456789", STO},
		{"788123456789012", ZTO},
		{"4312345678901", Yunda},
		{"5512345678901", Best},
		{"2212345678901", ZTO},
		{"612345678901", Unknown},
		{"JT123", Unknown},
		{"", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			assert.Equal(t, tt.want, Identify(tt.number))
		})
	}
}

func TestBareNumbersExcludeLeadingDigits(t *testing.T) {
	assert.Equal(t, ZTO, Identify("912345678901"))
	for _, n := range []string{"412345678901", "612345678901"} {
		assert.Equal(t, Unknown, Identify(n), n)
	}
}

func TestExtractNumber(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"运单号：JT1234567890123", "JT1234567890123", true},
		{"顺丰 SF 1234 5678 90 已复制", "SF1234567890", true},
		{"订单编号 240101-1234567", "2401011234567", true},
		{"复制成功", "", false},
		{"123", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ExtractNumber(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
