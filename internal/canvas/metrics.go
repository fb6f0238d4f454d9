package canvas

import "tools.zach/dev/coverkit/internal/preset"

// Metrics holds every size-dependent drawing constant for one preset.
type Metrics struct {
	// Watermark.
	WatermarkScale  float64
	ShapeLineWidth  float64
	DotSpacingScale float64
	DotRadius       float64

	// Text.
	TitleSize       float64
	SubtitleSize    float64
	TaglineSize     float64
	TitleOffsetY    float64
	SubtitleOffsetY float64
	TaglineOffsetX  float64
	TaglineOffsetY  float64
	BadgeSize       float64
	BadgeInline     bool
	BadgeGap        float64

	// Social links.
	SocialOffsetX  float64
	SocialIcon     float64
	SocialTextGap  float64
	SocialItemGap  float64
	SocialFontSize float64

	// App cards.
	CardGap           float64
	CardUnlabeledGrow float64
	CardDefaultWidth  float64
	CardBottomMargin  float64
	CardRadius        float64
	LogoHeight        float64
	LabelGap          float64
	LabelFontSize     float64
	LabelOffsetY      float64
}

// MetricsFor derives the constants for size. The large branch is taken iff
// size.LargeFormat is set.
func MetricsFor(size preset.SizeConfig) Metrics {
	p := size.Pick
	return Metrics{
		WatermarkScale:  p(1, 2.5),
		ShapeLineWidth:  p(2, 5),
		DotSpacingScale: p(1, 2.5),
		DotRadius:       p(3, 7),

		TitleSize:       p(52, 100),
		SubtitleSize:    p(22, 48),
		TaglineSize:     p(18, 36),
		TitleOffsetY:    p(40, 80),
		SubtitleOffsetY: p(108, 200),
		TaglineOffsetX:  p(400, 800),
		TaglineOffsetY:  p(160, 320),
		BadgeSize:       p(14, 40),
		BadgeInline:     size.LargeFormat,
		BadgeGap:        p(0, 40),

		SocialOffsetX:  p(400, 800),
		SocialIcon:     p(18, 36),
		SocialTextGap:  p(8, 16),
		SocialItemGap:  p(24, 48),
		SocialFontSize: p(16, 32),

		CardGap:           p(8, 16),
		CardUnlabeledGrow: p(1.2, 1.3),
		CardDefaultWidth:  p(150, 300),
		CardBottomMargin:  p(30, 60),
		CardRadius:        p(20, 32),
		LogoHeight:        p(20, 40),
		LabelGap:          p(6, 12),
		LabelFontSize:     p(14, 28),
		LabelOffsetY:      p(12, 24),
	}
}
