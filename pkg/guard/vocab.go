package guard

import "strings"

// Vocabulary holds the curated token sets the domain classifier matches
// against. The sets are plain data so they can be swapped or extended
// without touching the classifier's control flow.
type Vocabulary struct {
	Medical        set
	BodyParts      set
	Descriptors    set
	PersonalInfo   set
	Conversational set

	// SpecialtyHints maps a specialty name to substrings that indicate the
	// message belongs to that specialty.
	SpecialtyHints map[string][]string

	// SpecialtyContext maps a specialty name to substrings that establish
	// domain context when found anywhere in recent history.
	SpecialtyContext map[string][]string
}

type set map[string]struct{}

func (s set) has(word string) bool {
	_, ok := s[word]
	return ok
}

// intersects reports whether any token is in the set.
func (s set) intersects(tokens set) bool {
	return s.count(tokens) > 0
}

// count returns the number of tokens present in the set.
func (s set) count(tokens set) int {
	n := 0
	for t := range tokens {
		if _, ok := s[t]; ok {
			n++
		}
	}
	return n
}

func words(text string) set {
	s := set{}
	for _, w := range strings.Fields(text) {
		s[w] = struct{}{}
	}
	return s
}

// DefaultVocabulary returns the built-in skin/oral consultation vocabulary.
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Medical: words(`
rash acne eczema psoriasis lesion mole nevus wart blister itch itching itchy
erythema redness swelling inflammation bump bumps spot spots patch patches
bleeding bleed bruise bruising pain painful sore soreness hurt hurts burning
discharge pus infection infected inflamed tender tenderness
gum gums tooth teeth cavity caries gingivitis ulcer ulcers mouth lip lips
tongue jaw enamel plaque dental toothache sensitivity`),

		BodyParts: words(`
arm arms leg legs hand hands foot feet finger fingers toe toes
forearm forearms wrist wrists elbow elbows shoulder shoulders
back chest stomach abdomen belly side sides
head face forehead cheek cheeks chin nose eye eyes ear ears neck throat
skin scalp hair nail nails
upper lower left right middle center
knee knees ankle ankles hip hips thigh thighs calf calves shin shins`),

		Descriptors: words(`
about around near between under over above below
halfway quarter third part area region section spot location
since ago days weeks months years yesterday today morning evening night
started began appeared developed showed noticed
small large big tiny huge medium sized
red pink white yellow brown black blue purple green
round circular oval irregular shaped`),

		PersonalInfo: words(`
age years old months
male female man woman boy girl child adult
height weight tall short heavy light thin
pregnant pregnancy expecting trimester
allergic allergy allergies medication medicine drug
history family personal medical condition conditions
doctor physician dermatologist dentist`),

		Conversational: words(`
yes no maybe sometimes always never
better worse same different
more less
started stopped changed
it its they them this that these those`),

		SpecialtyHints: map[string][]string{
			"skin": {"skin", "derma", "face", "body", "area", "spot", "mark"},
			"oral": {"tooth", "teeth", "mouth", "dental", "bite", "chew", "taste"},
		},

		SpecialtyContext: map[string][]string{
			"skin": {"skin", "derma", "rash", "mole", "itch", "face", "arm", "leg", "back"},
			"oral": {"tooth", "teeth", "gum", "mouth", "dental", "bite", "jaw", "tongue"},
		},
	}
}
