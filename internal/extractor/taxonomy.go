package extractor

// Keyword taxonomies are data, not logic: plain ordered lists that can be
// extended without touching the extraction control flow. Matching is
// case-insensitive everywhere; entries keep their canonical casing for
// output.

// SkillTaxonomy is the static skill keyword list used when a document has no
// dedicated skills section. Order matters only for deterministic iteration;
// result order follows first occurrence in the text.
var SkillTaxonomy = []string{
	"JavaScript", "TypeScript", "Node.js", "React", "Vue.js", "Angular",
	"PHP", "Symfony", "Laravel", "WordPress",
	"Python", "Django", "Flask", "Java", "Spring", "Kotlin", "Scala",
	"C++", "C#", ".NET", "Go", "Rust", "Ruby", "Rails",
	"SQL", "MySQL", "PostgreSQL", "MongoDB", "Redis", "Elasticsearch",
	"AWS", "Azure", "GCP", "Docker", "Kubernetes", "Terraform", "Ansible",
	"Git", "Linux", "CI/CD", "Jenkins", "GitLab",
	"Machine Learning", "Data Science", "TensorFlow", "PyTorch", "Spark",
	"Hadoop", "Kafka", "GraphQL", "REST",
	"Figma", "UI/UX", "Photoshop", "Illustrator",
	"Excel", "Power BI", "Tableau",
	"Agile", "Scrum", "Kanban", "Gestion de projet", "Project Management",
	"Communication", "Leadership", "Teamwork", "Marketing", "SEO",
}

// EducationKeywords flags a line as education-related, French first.
var EducationKeywords = []string{
	"master", "licence", "doctorat", "bts", "dut", "but", "cap", "bac",
	"ingénieur", "ingenieur", "université", "universite", "école", "ecole",
	"faculté", "faculte", "diplôme", "diplome", "formation",
	"bachelor", "phd", "mba", "degree", "university", "college",
	"institute", "graduate",
}

// LanguageNames are the language labels recognised by the language
// extractor, in both French and English.
var LanguageNames = []string{
	"français", "francais", "anglais", "espagnol", "allemand", "italien",
	"portugais", "arabe", "chinois", "mandarin", "japonais", "russe",
	"néerlandais", "neerlandais", "polonais", "turc", "hindi", "wolof",
	"french", "english", "spanish", "german", "italian", "portuguese",
	"arabic", "chinese", "japanese", "russian", "dutch",
}

// CertificationKeywords flag a line as a certification when no dedicated
// section exists.
var CertificationKeywords = []string{
	"certification", "certificat", "certifié", "certifie", "certified",
	"aws certified", "azure", "pmp", "prince2", "itil", "cisco", "ccna",
	"toeic", "toefl", "ielts", "scrum master", "psm", "csm", "opquast",
}

// Canonical section keys used by the assembler. The segmenter looks up each
// key's aliases in SectionHeadings.
const (
	SectionSkills         = "compétences"
	SectionExperience     = "expérience"
	SectionEducation      = "formation"
	SectionLanguages      = "langues"
	SectionCertifications = "certifications"
	SectionSummary        = "résumé"
	SectionObjective      = "objectif"
)

// SectionHeadings maps a canonical section key to the heading spellings that
// open it. A heading matches at the start of a line, case-insensitively,
// optionally followed by a colon and inline content.
var SectionHeadings = map[string][]string{
	SectionSkills: {
		"compétences", "competences", "compétences techniques",
		"skills", "technical skills",
	},
	SectionExperience: {
		"expériences professionnelles", "expérience professionnelle",
		"expériences", "expérience", "experiences", "experience",
		"parcours professionnel", "work experience",
		"professional experience", "emplois",
	},
	SectionEducation: {
		"formations", "formation", "éducation", "education",
		"diplômes", "diplomes", "études", "etudes", "scolarité",
	},
	SectionLanguages: {
		"langues", "languages", "langues parlées",
	},
	SectionCertifications: {
		"certifications", "certificats", "certificates",
	},
	SectionSummary: {
		"résumé", "resume", "profil", "profile", "à propos", "a propos",
		"summary", "about",
	},
	SectionObjective: {
		"objectif", "objectifs", "objective", "objectif professionnel",
	},
}
