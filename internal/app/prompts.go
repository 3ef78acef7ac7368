package app

import (
	"fmt"
	"strings"

	"careerpilot/pkg/domain"
)

func insightPrompt(industry string) string {
	return fmt.Sprintf(`Analyze the current state of the %s industry and provide insights in ONLY the following JSON format without any additional notes or explanations:
{
  "salaryRanges": [
    { "role": "string", "min": number, "max": number, "median": number, "location": "string" }
  ],
  "growthRate": number,
  "demandLevel": "High" | "Medium" | "Low",
  "topSkills": ["skill1", "skill2"],
  "marketOutlook": "Positive" | "Neutral" | "Negative",
  "keyTrends": ["trend1", "trend2"],
  "recommendedSkills": ["skill1", "skill2"]
}

IMPORTANT: Return ONLY the JSON. No additional text, notes, or markdown formatting.
Include at least 5 common roles for salary ranges.
Growth rate should be a percentage.
Include at least 5 skills and trends.`, industry)
}

func quizPrompt(industry string, skills []string) string {
	var expertise string
	if len(skills) > 0 {
		expertise = fmt.Sprintf(" with expertise in %s", strings.Join(skills, ", "))
	}
	return fmt.Sprintf(`Generate 10 technical interview questions for a %s professional%s.

Each question should be multiple choice with 3 options.

Return the response in this JSON format only, no additional text:
{
  "questions": [
    {
      "question": "string",
      "options": ["string", "string", "string"],
      "correctAnswer": "string",
      "explanation": "string"
    }
  ]
}`, industry, expertise)
}

func improvementTipPrompt(industry string, wrong []domain.QuestionResult) string {
	var sb strings.Builder
	for i, q := range wrong {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "Question: %q\nCorrect Answer: %q\nUser Answer: %q", q.Question, q.CorrectAnswer, q.UserAnswer)
	}
	return fmt.Sprintf(`The user got the following %s technical interview questions wrong:

%s

Based on these mistakes, provide a concise, specific improvement tip.
Focus on the knowledge gaps revealed by these wrong answers.
Keep the response under 2 sentences and make it encouraging.
Don't explicitly mention the mistakes, instead focus on what to learn/practice.`, industry, sb.String())
}

func improveResumePrompt(industry, entryType, current string) string {
	return fmt.Sprintf(`As an expert resume writer, improve the following %s description for a %s professional.
Make it more impactful, quantifiable, and aligned with industry standards.
Current content: %q

Requirements:
1. Use action verbs
2. Include metrics and results where possible
3. Highlight relevant technical skills
4. Keep it concise but detailed
5. Focus on achievements over responsibilities
6. Use industry-specific keywords

Format the response as a single paragraph without any additional text or explanations.`, entryType, industry, current)
}
