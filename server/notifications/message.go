package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/cyclopcam/firewatch/pkg/nn"
	"github.com/cyclopcam/firewatch/server/configdb"
)

// ComposeMessage builds the alert text.
// The wording is Indonesian, because that is what our subjects read.
func ComposeMessage(subject *configdb.Subject, class nn.Class, confidence float32, at time.Time) string {
	b := strings.Builder{}
	b.WriteString("🔥 *PERINGATAN KEBAKARAN* 🔥\n\n")
	fmt.Fprintf(&b, "👤 Pemilik: %v\n", subject.Name)
	fmt.Fprintf(&b, "📍 Alamat:\n%v\n\n", subject.Location)
	fmt.Fprintf(&b, "🚨 Jenis Deteksi: %v\n", class)
	fmt.Fprintf(&b, "🎯 Confidence: %.2f\n", confidence)
	fmt.Fprintf(&b, "⏰ Waktu: %v\n\n", at.Format("15:04:05"))
	b.WriteString("⚠️ Segera lakukan penanganan darurat!")
	return b.String()
}
