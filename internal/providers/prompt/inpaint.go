package prompt

import "strings"

// buildInpaintPrompt renders the instruction given to the vision model when
// analysing a product image. The examples teach the model the weighting
// syntax the ad-inpaint model understands (trailing + and -).
func buildInpaintPrompt(productDescription, targetAudience, backgroundDescription string) string {
	var b strings.Builder
	b.WriteString(`<purpose>
  You are an expert prompt engineer for the ad-inpaint model. Your goal is to generate a highly appealing, realistic product photo by crafting a precise prompt and negative prompt.
</purpose>
<instructions>
  <instruction>
    Consider the provided product image, product description, and target audience description to craft the positive (user-prompt) and negative (user-negative-prompt) prompts.
  </instruction>
  <instruction>
    If target-photo-description is provided, adjust the positive and negative prompt to generate the product photo according to the description.
  </instruction>
  <instruction>
    Align the product seamlessly with the described environment; avoid mentioning people unless explicitly instructed.
  </instruction>
  <instruction>
    Ensure the prompts deliver a realistic aesthetic that fits the desired style and setting.
  </instruction>
  <instruction>
    Use the examples to understand how to structure both the positive prompt and the negative prompt.
  </instruction>
</instructions>

<product-description>
`)
	b.WriteString(productDescription)
	b.WriteString(`
</product-description>

<target-audience>
`)
	b.WriteString(targetAudience)
	b.WriteString(`
</target-audience>`)
	if strings.TrimSpace(backgroundDescription) != "" {
		b.WriteString(`

<target-photo-description>
`)
		b.WriteString(backgroundDescription)
		b.WriteString(`
</target-photo-description>`)
	}
	b.WriteString(`

<examples>
  <example>
    <positive-prompt>
      modern sofa+ in a contemporary living room, filled with stylish decor+;modern, contemporary, sofa, living room, stylish decor
    </positive-prompt>
    <negative-prompt>
      illustration, 3d, sepia, painting, cartoons, sketch, (worst quality:2)
    </negative-prompt>
  </example>
  <example>
    <positive-prompt>
      bottle+ on a wooden platform-, adorned with a beautiful flower+ and surrounded by colorful decorative elements and greenery.
    </positive-prompt>
    <negative-prompt>
      text, watermark, painting, cartoons, sketch, worst quality
    </negative-prompt>
  </example>
  <example>
    <positive-prompt>
      bottle on table for Christmas
    </positive-prompt>
    <negative-prompt>
      illustration, 3d, sepia, painting, cartoons, sketch, (worst quality:2)
    </negative-prompt>
  </example>
</examples>`)
	return b.String()
}
