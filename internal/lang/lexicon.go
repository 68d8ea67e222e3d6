package lang

// Closed-class word lists, keyed by lower-cased form with accents.

var determiners = set(
	"el", "la", "los", "las", "un", "una", "unos", "unas", "lo",
	"este", "esta", "estos", "estas", "ese", "esa", "esos", "esas",
	"aquel", "aquella", "mi", "mis", "tu", "tus", "su", "sus",
	"nuestro", "nuestra", "nuestros", "nuestras", "otro", "otra",
	"mucho", "mucha", "muchos", "muchas", "poco", "poca", "todo", "toda", "todos", "todas",
	"algún", "alguno", "alguna", "ningún", "ninguno", "ninguna", "cada",
)

var pronouns = set(
	"yo", "tú", "él", "ella", "ello", "nosotros", "nosotras", "vosotros", "vosotras",
	"ellos", "ellas", "usted", "ustedes", "me", "te", "se", "le", "les", "nos", "os",
	"mí", "ti", "conmigo", "contigo", "esto", "eso", "aquello", "algo", "nada", "alguien", "nadie",
	"qué", "quién", "quiénes", "cuál", "cuáles", "dónde", "cuándo", "cuánto", "cuánta", "cuántos", "cuántas", "cómo",
)

var adpositions = set(
	"a", "al", "ante", "bajo", "con", "contra", "de", "del", "desde", "en", "entre",
	"hacia", "hasta", "para", "por", "según", "sin", "sobre", "tras",
)

var conjunctions = set(
	"y", "e", "o", "u", "ni", "pero", "sino", "que", "porque", "pues", "si", "aunque", "como", "cuando", "donde",
)

var adverbs = set(
	"no", "sí", "muy", "más", "menos", "ya", "también", "tampoco", "bien", "mal",
	"aquí", "ahí", "allí", "allá", "hoy", "ayer", "ahora", "luego", "después", "antes",
	"siempre", "nunca", "todavía", "aún", "casi", "solo", "sólo", "mucho", "poco", "tanto", "bastante",
)

var interjections = set(
	"hola", "adiós", "gracias", "vale", "ok", "okay", "bueno", "buenas", "vaya", "ay", "oh", "eh", "uy", "hey",
)

var adjectives = set(
	"grande", "grandes", "pequeño", "pequeña", "pequeños", "pequeñas", "bonito", "bonita", "feo", "fea",
	"rojo", "roja", "azul", "verde", "amarillo", "amarilla", "blanco", "blanca", "negro", "negra",
	"nuevo", "nueva", "viejo", "vieja", "bueno", "buena", "malo", "mala", "alto", "alta", "bajo", "baja",
	"feliz", "felices", "triste", "tristes", "contento", "contenta", "cansado", "cansada",
	"caliente", "frío", "fría", "rápido", "rápida", "lento", "lenta",
)

// Words ending like infinitives that are nouns.
var infinitiveLookalikes = set(
	"lugar", "mar", "hogar", "collar", "azúcar", "altar", "bar", "par", "militar", "familiar", "particular",
	"mujer", "taller", "alfiler", "placer", "ayer", "cáncer", "líder", "póster", "súper",
	"elixir", "nadir", "faquir",
)

// Common infinitives; catalog keywords ending in -ar/-er/-ir extend this set.
var baseVerbs = []string{
	"ser", "estar", "tener", "ir", "querer", "poder", "hacer", "decir", "ver", "dar", "saber",
	"comer", "beber", "jugar", "dormir", "hablar", "mirar", "escuchar", "leer", "escribir",
	"correr", "andar", "caminar", "saltar", "nadar", "cantar", "bailar", "pintar", "dibujar",
	"lavar", "vestir", "abrir", "cerrar", "sentir", "pensar", "gustar", "necesitar", "ayudar",
	"venir", "salir", "llegar", "esperar", "trabajar", "estudiar", "aprender", "llorar", "reír",
}

// irregular maps conjugated forms that suffix rules cannot recover.
var irregular = map[string]verbForm{
	"soy": {"ser", 1}, "eres": {"ser", 2}, "es": {"ser", 3}, "somos": {"ser", 1}, "son": {"ser", 3},
	"era": {"ser", 3}, "fue": {"ser", 3},
	"estoy": {"estar", 1}, "estás": {"estar", 2}, "está": {"estar", 3}, "estamos": {"estar", 1}, "están": {"estar", 3},
	"tengo": {"tener", 1}, "tienes": {"tener", 2}, "tiene": {"tener", 3}, "tenemos": {"tener", 1}, "tienen": {"tener", 3},
	"voy": {"ir", 1}, "vas": {"ir", 2}, "va": {"ir", 3}, "vamos": {"ir", 1}, "van": {"ir", 3},
	"quiero": {"querer", 1}, "quieres": {"querer", 2}, "quiere": {"querer", 3}, "quieren": {"querer", 3},
	"puedo": {"poder", 1}, "puedes": {"poder", 2}, "puede": {"poder", 3}, "pueden": {"poder", 3},
	"juego": {"jugar", 1}, "juegas": {"jugar", 2}, "juega": {"jugar", 3}, "juegan": {"jugar", 3},
	"duermo": {"dormir", 1}, "duermes": {"dormir", 2}, "duerme": {"dormir", 3}, "duermen": {"dormir", 3},
	"hago": {"hacer", 1}, "haces": {"hacer", 2}, "hace": {"hacer", 3},
	"digo": {"decir", 1}, "dices": {"decir", 2}, "dice": {"decir", 3},
	"veo": {"ver", 1}, "ves": {"ver", 2}, "ve": {"ver", 3},
	"doy": {"dar", 1}, "das": {"dar", 2}, "da": {"dar", 3},
	"sé": {"saber", 1}, "sabes": {"saber", 2}, "sabe": {"saber", 3},
	"siento": {"sentir", 1}, "sientes": {"sentir", 2}, "siente": {"sentir", 3},
	"pienso": {"pensar", 1}, "piensas": {"pensar", 2}, "piensa": {"pensar", 3},
	"vengo": {"venir", 1}, "vienes": {"venir", 2}, "viene": {"venir", 3},
	"salgo": {"salir", 1}, "cierro": {"cerrar", 1}, "visto": {"vestir", 1},
	"gusta": {"gustar", 3}, "gustan": {"gustar", 3},
}

// suffix is a regular conjugation ending for one verb class.
type suffix struct {
	ending string // normalized, no accents
	class  string // "ar", "er" or "ir"
	person int
}

// regularSuffixes are tried longest first.
var regularSuffixes = []suffix{
	{"ieron", "er", 3}, {"ieron", "ir", 3}, {"aron", "ar", 3},
	{"iendo", "er", 0}, {"iendo", "ir", 0}, {"ando", "ar", 0},
	{"amos", "ar", 1}, {"emos", "er", 1}, {"imos", "ir", 1},
	{"aste", "ar", 2}, {"iste", "er", 2}, {"iste", "ir", 2},
	{"ais", "ar", 2}, {"eis", "er", 2}, {"ado", "ar", 0}, {"ido", "er", 0}, {"ido", "ir", 0},
	{"as", "ar", 2}, {"an", "ar", 3}, {"es", "er", 2}, {"en", "er", 3}, {"es", "ir", 2}, {"en", "ir", 3},
	{"is", "ir", 2}, {"io", "er", 3}, {"io", "ir", 3},
	{"o", "ar", 1}, {"o", "er", 1}, {"o", "ir", 1},
	{"a", "ar", 3}, {"e", "er", 3}, {"e", "ir", 3}, {"e", "ar", 1}, {"i", "er", 1}, {"i", "ir", 1},
}

type verbForm struct {
	lemma  string
	person int
}

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
